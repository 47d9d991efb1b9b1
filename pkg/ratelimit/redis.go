package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const redisKeyPrefix = "ratelimit:"

// RedisRateLimiter keeps a sliding window per key in a sorted set, shared by every server instance.
type RedisRateLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
	logger   Logger
	now      func() time.Time
}

func NewRedisRateLimiter(client *redis.Client, requests int, window time.Duration, logger Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		requests: requests,
		window:   window,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *RedisRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

// KEYS[1] window set; ARGV now_ms, window_ms, limit, ttl_ms, member.
// Returns 1 when limited. Rejected attempts are not recorded.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])

redis.call('ZREMRANGEBYSCORE', key, 0, now - tonumber(ARGV[2]))
if redis.call('ZCARD', key) >= tonumber(ARGV[3]) then
	return 1
end

redis.call('ZADD', key, now, ARGV[5])
redis.call('PEXPIRE', key, tonumber(ARGV[4]))
return 0
`)

func (r *RedisRateLimiter) IsLimited(ctx context.Context, key string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	redisKey := key
	if !strings.HasPrefix(redisKey, redisKeyPrefix) {
		redisKey = redisKeyPrefix + key
	}

	windowMs := r.window.Milliseconds()
	args := []interface{}{r.now().UnixMilli(), windowMs, r.requests, windowMs * 2, uuid.NewString()}

	limited, err := slidingWindow.Run(ctx, r.client, []string{redisKey}, args...).Int64()
	if err != nil {
		if r.logger != nil {
			r.logger.Error("Redis throttle check failed", "key", redisKey, "error", err)
		}
		return false, fmt.Errorf("ratelimit: redis: %w", err)
	}

	return limited == 1, nil
}

// Close is a no-op: the client belongs to the application cache.
func (r *RedisRateLimiter) Close() error {
	return nil
}
