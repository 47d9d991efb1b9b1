package waitlist

import (
	"context"
	"encoding/json"
	"time"
)

const statsCacheKeyPrefix = "waitlist:stats:"

// KeyValueStore is the subset of config.Cache the stats cache needs.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// StatsCache memoizes Stats per application. Implementations must be safe for concurrent use.
type StatsCache interface {
	Get(ctx context.Context, appSlug string) (*WaitlistStats, bool)
	Set(ctx context.Context, appSlug string, stats *WaitlistStats)
	Invalidate(ctx context.Context, appSlug string)
}

type noopStatsCache struct{}

func (noopStatsCache) Get(context.Context, string) (*WaitlistStats, bool) { return nil, false }
func (noopStatsCache) Set(context.Context, string, *WaitlistStats)        {}
func (noopStatsCache) Invalidate(context.Context, string)                 {}

type storeStatsCache struct {
	store KeyValueStore
	ttl   time.Duration
}

// NewStatsCache returns a cache backed by store, or a no-op cache when store is nil or ttl is not positive.
func NewStatsCache(store KeyValueStore, ttl time.Duration) StatsCache {
	if store == nil || ttl <= 0 {
		return noopStatsCache{}
	}
	return &storeStatsCache{store: store, ttl: ttl}
}

func statsCacheKey(appSlug string) string {
	return statsCacheKeyPrefix + appSlug
}

// Get treats store errors and undecodable payloads as misses.
func (c *storeStatsCache) Get(ctx context.Context, appSlug string) (*WaitlistStats, bool) {
	raw, err := c.store.Get(ctx, statsCacheKey(appSlug))
	if err != nil || raw == "" {
		return nil, false
	}

	var stats WaitlistStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil, false
	}
	return &stats, true
}

func (c *storeStatsCache) Set(ctx context.Context, appSlug string, stats *WaitlistStats) {
	if stats == nil {
		return
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	_ = c.store.Set(ctx, statsCacheKey(appSlug), string(payload), c.ttl)
}

func (c *storeStatsCache) Invalidate(ctx context.Context, appSlug string) {
	_ = c.store.Delete(ctx, statsCacheKey(appSlug))
}
