package ratelimiter

import "errors"

var (
	// ErrInvalidConfig indicates a non-positive capacity, rate, or
	// interval.
	ErrInvalidConfig = errors.New("ratelimiter: invalid config")

	// ErrInvalidTokenCount indicates a non-positive token request.
	ErrInvalidTokenCount = errors.New("ratelimiter: invalid token count")
)
