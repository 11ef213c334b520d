package security

import "errors"

var (
	// ErrNotConfigured indicates no collaborator base URL was provided.
	ErrNotConfigured = errors.New("security: collaborator not configured")

	// ErrUnavailable indicates the collaborator could not be reached.
	ErrUnavailable = errors.New("security: collaborator unavailable")

	// ErrUnexpectedStatus indicates the collaborator rejected a request.
	ErrUnexpectedStatus = errors.New("security: unexpected response status")
)
