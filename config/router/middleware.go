package router

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akeren/raine-waitlist/internal/log"
	apperrors "github.com/akeren/raine-waitlist/pkg/errors"
	"github.com/akeren/raine-waitlist/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

const corsAllowHeaders = "Content-Type, Content-Length, Accept-Encoding, Accept, Origin, Cache-Control, X-Requested-With, " + log.CorrelationIDHeader

func (routerService *RouterService) correlationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := log.CorrelationIDFromHeader(c.GetHeader(log.CorrelationIDHeader))
		c.Request = c.Request.WithContext(log.ContextWithCorrelationID(c.Request.Context(), id))
		c.Header(log.CorrelationIDHeader, id)
		c.Next()
	}
}

func (routerService *RouterService) loggerInjectionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlatedLogger := routerService.logger.WithCorrelationID(c.Request.Context())
		c.Request = c.Request.WithContext(log.ContextWithLogger(c.Request.Context(), correlatedLogger))
		c.Next()
	}
}

func (routerService *RouterService) requestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.LogRequest(routerService.logger, c.Request, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}

func (routerService *RouterService) securityHeadersMiddleware() gin.HandlerFunc {
	hsts := routerService.settings.hsts

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if hsts.enabled && isHTTPS(c) {
			h.Set("Strict-Transport-Security", hsts.headerValue())
		}
		c.Next()
	}
}

// isHTTPS also accepts X-Forwarded-Proto since TLS usually terminates at a proxy.
func isHTTPS(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")), "https")
}

func (routerService *RouterService) maxBodySizeMiddleware() gin.HandlerFunc {
	maxBytes := routerService.settings.maxBodyBytes

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResult(
				http.StatusRequestEntityTooLarge,
				"Request payload too large",
				nil,
			).ToJSON())
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// corsMiddleware only decorates allowed origins; other cross-origin requests pass through without CORS headers
// and the browser blocks them.
func (routerService *RouterService) corsMiddleware() gin.HandlerFunc {
	settings := routerService.settings
	if len(settings.allowedOrigins) == 0 {
		routerService.logger.Warn("CORS_ALLOWED_ORIGIN not set; cross-origin requests will be denied by browsers")
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || !settings.originAllowed(origin) {
			if origin != "" {
				routerService.logger.Debug("CORS origin not allowed", "origin", origin)
			}
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Expose-Headers", "Retry-After, "+log.CorrelationIDHeader)
		h.Add("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (routerService *RouterService) timeoutMiddleware() gin.HandlerFunc {
	timeout := routerService.config.RequestTimeout

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		// Gin's Context is not safe for concurrent use, so the chain runs inline.
		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			routerService.logger.WithCorrelationID(c.Request.Context()).Warn("Request timeout detected", "path", c.Request.URL.Path)
			result := ErrorFrom(apperrors.New(apperrors.ErrorTypeRequestTimeout, "Request timeout", ctx.Err()))
			c.AbortWithStatusJSON(result.StatusCode, result.ToJSON())
		}
	}
}

// limiterFor resolves handler override, then controller override, then the global limiter.
// The scope is part of the key so limiters sharing a Redis backend never share counters.
func (routerService *RouterService) limiterFor(handlerKey string, controller *RESTController) (ratelimit.RateLimiter, string) {
	if limiter, ok := routerService.rateLimitOverrides[handlerKey]; ok {
		return limiter, handlerKey
	}
	if limiter, ok := routerService.rateLimitOverrides[controller.mountPoint]; ok {
		return limiter, controller.mountPoint
	}
	return routerService.rateLimiter, "global"
}

func throttleKey(scope, clientIP string) string {
	return "throttle:" + scope + ":" + clientIP
}

func (routerService *RouterService) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		handlerKey := routerService.keyForPathAndMethod(route, c.Request.Method)
		controller, found := routerService.handlerToControllerMap[handlerKey]

		if !found || controller == nil {
			// Unmapped routes fall through to NoRoute/NoMethod, or to engine-level routes such as /metrics.
			c.Next()
			return
		}

		limiter, scope := routerService.limiterFor(handlerKey, controller)
		if limiter == nil {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		limit, window := limiter.GetLimitDetails()
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Window", window.String())

		limited, err := limiter.IsLimited(c.Request.Context(), throttleKey(scope, clientIP))
		if err != nil {
			// A failing limiter backend lets the request through.
			routerService.logger.Error("Rate limiter error", "error", err, "client_ip", clientIP, "scope", scope)
			c.Next()
			return
		}

		if limited {
			routerService.logger.Warn("Rate limit exceeded", "client_ip", clientIP, "scope", scope)
			routerService.metrics.throttled(route)

			retryAfter := strconv.Itoa(max(1, int(math.Ceil(window.Seconds()))))
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, TooManyRequestsResult(RateLimitResponse{
				Limit:      limit,
				Window:     window.String(),
				RetryAfter: retryAfter,
			}).ToJSON())
			return
		}

		c.Next()
	}
}
