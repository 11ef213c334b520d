// Package ratelimiter implements a token bucket limiter with a
// pluggable store and HTTP middleware. The engine uses it to shield the
// registration and admission endpoints from abusive clients; the
// hot-path validation verdict is cheap enough to leave unlimited.
//
// # Usage
//
//	limiter, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
//		Capacity:       100,
//		RefillRate:     50,
//		RefillInterval: time.Second,
//	})
//	if err != nil {
//		return err
//	}
//
//	r.Use(ratelimiter.Middleware(limiter, ratelimiter.ByClientIP, log))
//
// The middleware fails open when the store is unavailable.
package ratelimiter
