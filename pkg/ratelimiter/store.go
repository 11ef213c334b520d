package ratelimiter

import (
	"context"
	"time"
)

// Store owns per-key bucket state. ConsumeTokens applies lazy refill,
// then attempts to take n tokens: on denial it reports a negative
// remaining count without consuming anything. The returned reset time
// is when the bucket next reaches full capacity.
type Store interface {
	ConsumeTokens(ctx context.Context, key string, n int, cfg Config) (remaining int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}
