package config

import (
	"context"
	"time"

	"github.com/akeren/raine-waitlist/internal/log"
	pkgredis "github.com/akeren/raine-waitlist/pkg/redis"
	"github.com/akeren/raine-waitlist/pkg/utils"
)

// Cache is the key/value store shared by the stats cache, the health probe and the router throttles.
type Cache interface {
	// Get returns ("", nil) when a key is not found.
	Get(ctx context.Context, key string) (string, error)
	// Set uses ttl=0 for no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

type CacheConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

func NewCacheConfigFromEnv() *CacheConfig {
	return &CacheConfig{
		Host:        sanitizeEnv(utils.GetEnvTrimmedOrDefault("REDIS_HOST", "")),
		Port:        utils.GetEnvTrimmedOrDefault("REDIS_PORT", "6379"),
		Password:    sanitizeEnv(GetValueFromEnvironmentVariable("REDIS_PASSWORD", "")),
		DB:          utils.GetEnvNonNegativeInt("REDIS_DB", 0),
		DialTimeout: utils.GetEnvPositiveDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
	}
}

func (cc *CacheConfig) Enabled() bool {
	return cc != nil && cc.Host != ""
}

// OpenCache connects to Redis when REDIS_HOST is set. Any failure yields a nil Cache:
// stats are then read straight from the database and throttles count in process.
func OpenCache(logger *log.Logger, cc *CacheConfig) Cache {
	if !cc.Enabled() {
		logger.Info("Redis is not configured; stats caching and throttles stay in process")
		return nil
	}

	cache, err := pkgredis.NewRedisCache(&pkgredis.Config{
		Host:        cc.Host,
		Port:        cc.Port,
		Password:    cc.Password,
		DB:          cc.DB,
		DialTimeout: cc.DialTimeout,
	})
	if err != nil {
		logger.Warn("Redis unavailable; continuing without it", "error", err)
		return nil
	}

	logger.Info("Redis connected", "host", cc.Host, "port", cc.Port, "db", cc.DB)
	return cache
}

func closeCache(cache Cache, logger *log.Logger) {
	if cache == nil {
		return
	}

	if err := cache.Close(); err != nil {
		logger.Error("Failed to close Redis connection", "error", err)
		return
	}
	logger.Info("Redis connection closed")
}
