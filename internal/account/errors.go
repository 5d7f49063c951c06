package account

import "errors"

// Domain errors for the account package.
//
// These errors can be checked using errors.Is() for error handling.
var (
	// ErrNotFound is returned when no credentials have been stored yet.
	ErrNotFound = errors.New("account: credentials not found")
)
