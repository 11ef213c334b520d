package device

import "errors"

var (
	// ErrNotFound indicates the device does not exist.
	ErrNotFound = errors.New("device: not found")

	// ErrAlreadyRegistered indicates another device holds the same hash.
	// The register path absorbs it by returning the existing record.
	ErrAlreadyRegistered = errors.New("device: hash already registered")

	// ErrDeviceRevoked indicates a registration attempt against a
	// revoked hash. Revocation is terminal here; reinstating a device
	// is an explicit administrative operation outside this engine.
	ErrDeviceRevoked = errors.New("device: revoked")

	// ErrInvalidTrustLevel indicates an administrative trust update with
	// an unknown level.
	ErrInvalidTrustLevel = errors.New("device: invalid trust level")
)
