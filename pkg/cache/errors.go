package cache

import "errors"

var (
	// ErrCacheMiss indicates the key is absent or expired.
	ErrCacheMiss = errors.New("cache: key not found")

	ErrFailedToParseRedisConnString = errors.New("cache: failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("cache: redis did not become ready within the given time period")
	ErrHealthcheckFailed            = errors.New("cache: redis healthcheck failed")
)
