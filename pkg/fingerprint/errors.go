package fingerprint

import "errors"

var (
	// ErrMissingDeviceHash indicates the client supplied no device hash.
	ErrMissingDeviceHash = errors.New("fingerprint: missing device hash")

	// ErrMissingUserAgent indicates the client supplied no user agent.
	ErrMissingUserAgent = errors.New("fingerprint: missing user agent")

	// ErrMalformedResolution indicates a screen resolution that is not
	// in "WIDTHxHEIGHT" form.
	ErrMalformedResolution = errors.New("fingerprint: malformed screen resolution")
)
