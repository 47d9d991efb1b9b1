package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	emptyKey = "__empty__"
	// sweepEvery is how many checks pass between evictions of idle buckets.
	sweepEvery = 1024
)

// InMemoryRateLimiter is a token bucket per key: bursts up to requests, refilled evenly over window.
type InMemoryRateLimiter struct {
	requests int
	window   time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	checks  uint64
	now     func() time.Time
}

type bucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

func NewInMemoryRateLimiter(requests int, window time.Duration) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		requests: requests,
		window:   window,
		buckets:  make(map[string]*bucket),
		now:      time.Now,
	}
}

func (m *InMemoryRateLimiter) GetLimitDetails() (int, time.Duration) {
	return m.requests, m.window
}

func (m *InMemoryRateLimiter) IsLimited(_ context.Context, key string) (bool, error) {
	if key == "" {
		key = emptyKey
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.buckets[key]
	if b == nil {
		refill := rate.Limit(float64(m.requests) / m.window.Seconds())
		b = &bucket{tokens: rate.NewLimiter(refill, m.requests)}
		m.buckets[key] = b
	}
	b.lastSeen = now

	m.checks++
	if m.checks%sweepEvery == 0 {
		m.evictIdle(now)
	}

	return !b.tokens.AllowN(now, 1), nil
}

// evictIdle drops buckets untouched for two windows; by then they have refilled completely.
func (m *InMemoryRateLimiter) evictIdle(now time.Time) {
	cutoff := now.Add(-2 * m.window)
	for key, b := range m.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(m.buckets, key)
		}
	}
}

func (m *InMemoryRateLimiter) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

func (m *InMemoryRateLimiter) Close() error {
	return nil
}
