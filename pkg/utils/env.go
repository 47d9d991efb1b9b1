package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func GetEnvTrimmedOrDefault(key, defaultValue string) string {
	if v := GetEnvTrimmed(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvPositiveInt returns defaultValue unless key holds an integer greater than zero.
func GetEnvPositiveInt(key string, defaultValue int) int {
	return envInt(key, defaultValue, 1)
}

// GetEnvNonNegativeInt is GetEnvPositiveInt with zero allowed, e.g. REDIS_DB=0.
func GetEnvNonNegativeInt(key string, defaultValue int) int {
	return envInt(key, defaultValue, 0)
}

func envInt(key string, defaultValue, min int) int {
	parsed, err := strconv.Atoi(GetEnvTrimmed(key))
	if err != nil || parsed < min {
		return defaultValue
	}
	return parsed
}

// GetEnvPositiveDuration returns defaultValue unless key holds a positive Go duration string.
func GetEnvPositiveDuration(key string, defaultValue time.Duration) time.Duration {
	parsed, err := time.ParseDuration(GetEnvTrimmed(key))
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

// GetEnvBool accepts anything strconv.ParseBool does and falls back to defaultValue otherwise.
func GetEnvBool(key string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(GetEnvTrimmed(key))
	if err != nil {
		return defaultValue
	}
	return parsed
}

// IsEnvTrue reports whether key is set to exactly "true".
// IS_WAITLIST relies on this; "1" or "TRUE" keep the site live.
func IsEnvTrue(key string) bool {
	return GetEnvTrimmed(key) == "true"
}
