package account

import "time"

// Credentials holds the Treeow account identity and the token pair issued by
// the vendor API.
//
// The invariant maintained by the token manager is that ExpiresAt is always
// consistent with the stored token pair: both are replaced together on every
// login or refresh, never separately.
type Credentials struct {
	Account      string
	Password     string
	AccessToken  string
	RefreshToken string

	// ExpiresAt is the access token expiry as Unix epoch seconds.
	ExpiresAt int64
}

// Remaining returns the time left until the access token expires.
// The result is negative for an already-expired token.
func (c Credentials) Remaining(now time.Time) time.Duration {
	return time.Unix(c.ExpiresAt, 0).Sub(now)
}

// HasTokens reports whether a token pair has ever been stored.
func (c Credentials) HasTokens() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}
