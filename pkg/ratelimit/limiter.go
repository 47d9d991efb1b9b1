package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Logger is the slice of internal/log the Redis throttle reports through.
type Logger interface {
	Error(msg string, args ...interface{})
}

// RateLimiter throttles requests per key. The router keys by scope and client IP.
type RateLimiter interface {
	GetLimitDetails() (int, time.Duration)
	IsLimited(ctx context.Context, key string) (bool, error)
	Close() error
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// Redis shares counts across instances; nil keeps them in process.
	Redis  *redis.Client
	Logger Logger
}

func NewRateLimiter(config *RateLimitConfig) RateLimiter {
	if config.Redis != nil {
		return NewRedisRateLimiter(config.Redis, config.Requests, config.Window, config.Logger)
	}
	return NewInMemoryRateLimiter(config.Requests, config.Window)
}
