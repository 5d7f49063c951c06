package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a device ID is not in the registry.
	ErrNotFound = errors.New("device: not found")

	// ErrExists is returned when registering a device ID twice.
	ErrExists = errors.New("device: already registered")
)
