package treeow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lboswell/treeow-core/internal/account"
)

const (
	// refreshThreshold is how much remaining lifetime a token may have
	// before EnsureFresh refreshes it proactively.
	refreshThreshold = 24 * time.Hour

	// ensureInterval is the cadence of the background maintenance loop.
	ensureInterval = time.Hour

	// Transient maintenance failures retry with exponential backoff.
	ensureRetryDelay    = time.Minute
	ensureRetryDelayMax = 15 * time.Minute
)

// FreshResult reports what EnsureFresh did to the token set.
type FreshResult int

const (
	// Unchanged means the current tokens were verified and left alone.
	Unchanged FreshResult = iota

	// Refreshed means new tokens were obtained, via refresh or full login.
	Refreshed
)

func (r FreshResult) String() string {
	if r == Refreshed {
		return "refreshed"
	}
	return "unchanged"
}

// TokenManager owns the token lifecycle: it keeps the client's access token
// valid and persists every token change write-through, so a restart resumes
// from stored tokens instead of burning a fresh login.
//
// All methods are safe for concurrent use; token transitions are serialized.
type TokenManager struct {
	client *Client
	store  account.Store
	logger Logger

	mu    sync.Mutex
	creds account.Credentials

	now func() time.Time
}

// NewTokenManager creates a manager seeded with the given credentials.
// The access token (if any) is installed on the client immediately.
func NewTokenManager(client *Client, store account.Store, creds account.Credentials) *TokenManager {
	client.SetAccessToken(creds.AccessToken)
	return &TokenManager{
		client: client,
		store:  store,
		logger: noopLogger{},
		creds:  creds,
		now:    time.Now,
	}
}

// SetLogger sets the logger for the token manager.
func (m *TokenManager) SetLogger(logger Logger) {
	m.logger = logger
}

// Credentials returns a copy of the current credential set.
func (m *TokenManager) Credentials() account.Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds
}

// EnsureFresh brings the token set to a known-good state:
//
//   - no tokens, or the access token fails verification: full login
//   - verified with more than 24h remaining: leave alone
//   - verified but expiring within 24h: refresh, falling back to a full
//     login if the cloud rejects the refresh token
//
// ErrAuth from this method means even a full password login failed; the
// stored credentials need operator re-entry.
func (m *TokenManager) EnsureFresh(ctx context.Context) (FreshResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.creds.HasTokens() {
		m.logger.Info("no stored tokens, performing login")
		return Refreshed, m.login(ctx)
	}

	if err := m.client.Verify(ctx); err != nil {
		if !errors.Is(err, ErrAuth) {
			return Unchanged, fmt.Errorf("ensure fresh: %w", err)
		}
		m.logger.Info("access token rejected, performing login")
		return Refreshed, m.login(ctx)
	}

	if m.creds.Remaining(m.now()) > refreshThreshold {
		return Unchanged, nil
	}

	m.logger.Info("access token expiring soon, refreshing")
	token, err := m.client.Refresh(ctx, m.creds.RefreshToken)
	if err != nil {
		if !errors.Is(err, ErrAuth) {
			return Unchanged, fmt.Errorf("ensure fresh: %w", err)
		}
		m.logger.Warn("refresh token rejected, falling back to login")
		return Refreshed, m.login(ctx)
	}

	m.adopt(ctx, token)
	return Refreshed, nil
}

// login performs a full credential login and adopts the resulting tokens.
// Callers hold m.mu.
func (m *TokenManager) login(ctx context.Context) error {
	token, err := m.client.Login(ctx, m.creds.Account, m.creds.Password)
	if err != nil {
		return err
	}
	m.adopt(ctx, token)
	return nil
}

// adopt installs a new token set on the client and persists it. A failed
// save is logged, not fatal: the in-memory tokens stay good and the next
// successful token change retries the write. Callers hold m.mu.
func (m *TokenManager) adopt(ctx context.Context, token Token) {
	m.creds.AccessToken = token.AccessToken
	m.creds.RefreshToken = token.RefreshToken
	m.creds.ExpiresAt = token.ExpiresAt
	m.client.SetAccessToken(token.AccessToken)

	if err := m.store.Save(ctx, m.creds); err != nil {
		m.logger.Error("failed to persist credentials", "error", err)
		return
	}
	m.logger.Debug("credentials persisted",
		"expires_at", time.Unix(token.ExpiresAt, 0).UTC().Format(time.RFC3339))
}

// Run keeps the tokens fresh for the life of the context. Transient
// failures retry with capped exponential backoff; an auth failure stops
// the loop and is returned, because no amount of retrying fixes rejected
// credentials.
func (m *TokenManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(ensureInterval)
	defer ticker.Stop()

	retryDelay := ensureRetryDelay
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		for {
			result, err := m.EnsureFresh(ctx)
			if err == nil {
				m.logger.Debug("token maintenance complete", "result", result.String())
				retryDelay = ensureRetryDelay
				break
			}
			if errors.Is(err, ErrAuth) {
				m.logger.Error("token maintenance hit an auth failure", "error", err)
				return err
			}

			m.logger.Warn("token maintenance failed, will retry",
				"error", err, "retry_in", retryDelay.String())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
			if retryDelay > ensureRetryDelayMax {
				retryDelay = ensureRetryDelayMax
			}
		}
	}
}
