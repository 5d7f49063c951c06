package account

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store defines the interface for credential persistence.
//
// The token manager writes through this interface immediately after every
// successful login or refresh; it never batches credential updates.
type Store interface {
	Load(ctx context.Context) (Credentials, error)
	Save(ctx context.Context, creds Credentials) error
}

// SQLiteStore implements Store using a single-row SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the credentials table if needed and returns a store.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS credentials (
			id            INTEGER PRIMARY KEY CHECK (id = 1),
			account       TEXT NOT NULL,
			password      TEXT NOT NULL,
			access_token  TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			expires_at    INTEGER NOT NULL DEFAULT 0,
			updated_at    TEXT NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("creating credentials table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load retrieves the stored credentials.
// Returns ErrNotFound if no credentials have been saved yet.
func (s *SQLiteStore) Load(ctx context.Context) (Credentials, error) {
	var c Credentials

	err := s.db.QueryRowContext(ctx,
		`SELECT account, password, access_token, refresh_token, expires_at
		 FROM credentials WHERE id = 1`,
	).Scan(&c.Account, &c.Password, &c.AccessToken, &c.RefreshToken, &c.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return Credentials{}, ErrNotFound
		}
		return Credentials{}, fmt.Errorf("loading credentials: %w", err)
	}

	return c, nil
}

// Save writes the credentials, replacing any previous row.
func (s *SQLiteStore) Save(ctx context.Context, creds Credentials) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (id, account, password, access_token, refresh_token, expires_at, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			account = excluded.account,
			password = excluded.password,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		creds.Account, creds.Password, creds.AccessToken, creds.RefreshToken, creds.ExpiresAt, now,
	)
	if err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	return nil
}
