package cache

import (
	"context"
	"time"
)

// Cache is a key-value side-index with per-key TTL. Values are stored
// as JSON. It is never the source of truth: writers invalidate entries
// after every store mutation and readers fall back to the store on a
// miss.
type Cache interface {
	// Set stores value under key with the given TTL. Zero TTL means
	// the entry does not expire.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Get unmarshals the cached value into dest. Returns ErrCacheMiss
	// when the key is absent or expired.
	Get(ctx context.Context, key string, dest any) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
