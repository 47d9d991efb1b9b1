package router

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/akeren/raine-waitlist/pkg/utils"
)

const (
	defaultPort         = "8080"
	defaultMaxBodyBytes = int64(1 << 20)
	defaultHSTSMaxAge   = int64(31536000)
)

// httpSettings is the environment-driven part of the router, read once at construction.
type httpSettings struct {
	port           string
	ginMode        string
	trustedProxies []string
	allowedOrigins []string
	maxBodyBytes   int64
	metrics        bool
	hsts           hstsPolicy
}

type hstsPolicy struct {
	enabled           bool
	maxAge            int64
	includeSubdomains bool
}

func (p hstsPolicy) headerValue() string {
	value := fmt.Sprintf("max-age=%d", p.maxAge)
	if p.includeSubdomains {
		value += "; includeSubDomains"
	}
	return value
}

func loadHTTPSettings() httpSettings {
	appEnv := strings.ToLower(utils.GetEnvTrimmed("APP_ENV"))

	return httpSettings{
		port:           utils.GetEnvTrimmedOrDefault("APP_PORT", defaultPort),
		ginMode:        utils.GetEnvTrimmed("GIN_MODE"),
		trustedProxies: parseTrustedProxies(utils.GetEnvTrimmed("TRUSTED_PROXIES")),
		allowedOrigins: splitCSV(utils.GetEnvTrimmed("CORS_ALLOWED_ORIGIN")),
		maxBodyBytes:   envInt64("MAX_REQUEST_BODY_BYTES", defaultMaxBodyBytes),
		metrics:        envBool("METRICS_ENABLED", true),
		hsts: hstsPolicy{
			// On by default in production only.
			enabled:           envBool("HSTS_ENABLED", appEnv == "production" || appEnv == "prod"),
			maxAge:            envInt64("HSTS_MAX_AGE", defaultHSTSMaxAge),
			includeSubdomains: envBool("HSTS_INCLUDE_SUBDOMAINS", true),
		},
	}
}

// parseTrustedProxies returns nil (trust nobody, ClientIP uses RemoteAddr) unless proxies are listed.
// "*" trusts every address and is meant for local setups behind a dev proxy.
func parseTrustedProxies(raw string) []string {
	if raw == "*" {
		return []string{"0.0.0.0/0", "::/0"}
	}
	return splitCSV(raw)
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt64(key string, defaultValue int64) int64 {
	parsed, err := strconv.ParseInt(utils.GetEnvTrimmed(key), 10, 64)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}

func envBool(key string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(utils.GetEnvTrimmed(key))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (s httpSettings) originAllowed(origin string) bool {
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
