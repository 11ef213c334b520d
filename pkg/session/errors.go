package session

import "errors"

var (
	// ErrNotFound is returned when the session does not exist.
	ErrNotFound = errors.New("session: not found")

	// ErrDeviceNotFound is returned when admission references a device
	// that is not registered.
	ErrDeviceNotFound = errors.New("session: device not found")

	// ErrOwnershipMismatch is returned when the device belongs to a
	// different user than the one requesting the session. The pairing is
	// rejected, never silently corrected.
	ErrOwnershipMismatch = errors.New("session: device belongs to another user")

	// ErrDeviceInactive is returned when admission references a revoked
	// device.
	ErrDeviceInactive = errors.New("session: device is revoked")
)
