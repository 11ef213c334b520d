package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type bucketState struct {
	tokens     int
	lastRefill time.Time
}

// MemoryStore keeps bucket state in process memory. Suitable for a
// single-node deployment; a multi-node deployment needs a shared store.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucketState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucketState),
	}
}

func (m *MemoryStore) ConsumeTokens(ctx context.Context, key string, n int, cfg Config) (int, time.Time, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok {
		b = &bucketState{tokens: cfg.Capacity, lastRefill: now}
		m.buckets[key] = b
	}

	refill(b, cfg, now)

	if b.tokens < n {
		// Denied: report the shortfall without consuming.
		return b.tokens - n, resetTime(b, cfg, now), nil
	}

	b.tokens -= n
	return b.tokens, resetTime(b, cfg, now), nil
}

func (m *MemoryStore) Reset(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buckets, key)
	return nil
}

// refill applies lazy token refill for the intervals elapsed since the
// last update. Partial intervals carry over via lastRefill advancement.
func refill(b *bucketState, cfg Config, now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	intervals := int(elapsed / cfg.RefillInterval)
	if intervals <= 0 {
		return
	}

	b.tokens += intervals * cfg.RefillRate
	if b.tokens > cfg.Capacity {
		b.tokens = cfg.Capacity
	}
	b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * cfg.RefillInterval)
}

// resetTime is when the bucket refills back to capacity.
func resetTime(b *bucketState, cfg Config, now time.Time) time.Time {
	missing := cfg.Capacity - b.tokens
	if missing <= 0 {
		return now
	}
	intervals := (missing + cfg.RefillRate - 1) / cfg.RefillRate
	return b.lastRefill.Add(time.Duration(intervals) * cfg.RefillInterval)
}

var _ Store = (*MemoryStore)(nil)
