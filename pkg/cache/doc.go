// Package cache provides the weak, time-bounded side-index used by the
// device registry and session manager.
//
// The Cache interface exposes Set/Get/Delete with per-key TTL over
// JSON-encoded values. Two implementations are included: RedisCache for
// production (github.com/redis/go-redis/v9) and MemoryCache for tests
// and local development.
//
// The cache is never an owning source of truth. Components follow a
// two-step protocol on mutation: write the store, then invalidate the
// cache key. The brief window between the two steps is an accepted
// property of the design, and every reader must tolerate ErrCacheMiss
// by falling back to the store.
package cache
