package httpserver

import "errors"

var (
	// ErrStart indicates the listener failed to start or crashed.
	ErrStart = errors.New("httpserver: start failed")

	// ErrShutdown indicates graceful shutdown did not complete within
	// the configured timeout.
	ErrShutdown = errors.New("httpserver: shutdown failed")
)
