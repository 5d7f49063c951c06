package treeow

import (
	"errors"
	"fmt"
)

// Domain errors for the treeow package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, treeow.ErrAuth) {
//	    // credentials or tokens were rejected; operator re-entry needed
//	}
var (
	// ErrAuth is returned when the vendor cloud rejects credentials or
	// tokens: failed login, rejected refresh token, invalid access token.
	ErrAuth = errors.New("treeow: authentication failed")

	// ErrProtocol is returned when a response cannot be interpreted:
	// undecodable body or an envelope in no recognized shape. Unknown
	// envelopes fail closed.
	ErrProtocol = errors.New("treeow: protocol error")

	// ErrCommandRejected is returned when a capability write was accepted
	// by the transport but the read-back value does not match.
	ErrCommandRejected = errors.New("treeow: command rejected")
)

// ServerError is a vendor rejection: a well-formed response envelope whose
// code or message signals failure. The message is the vendor's own text and
// is surfaced to operators on command rejection.
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("treeow: server rejected request (code %d): %s", e.Code, e.Message)
}
