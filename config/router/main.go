package router

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/akeren/raine-waitlist/internal/log"
	apperrors "github.com/akeren/raine-waitlist/pkg/errors"
	"github.com/akeren/raine-waitlist/pkg/ratelimit"
	"github.com/akeren/raine-waitlist/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const DefaultTimeoutDuration = 30 * time.Second

type Cache interface {
	Ping(ctx context.Context) error
}

// RedisClientProvider lets a cache lend its client to the distributed throttle.
type RedisClientProvider interface {
	GetClient() *redis.Client
}

type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
}

type RouterService struct {
	engine   *gin.Engine
	server   *http.Server
	logger   *log.Logger
	settings httpSettings
	config   RouterConfig
	registry *prometheus.Registry
	metrics  *metrics

	redisClient *redis.Client
	rateLimiter ratelimit.RateLimiter

	// Keyed by "METHOD-path" for handlers and by mount point for controllers.
	handlerToControllerMap map[string]*RESTController
	rateLimitOverrides     map[string]ratelimit.RateLimiter
}

func CreateRouterService(logger *log.Logger, cache Cache, routerConfig *RouterConfig) *RouterService {
	settings := loadHTTPSettings()

	cfg := *routerConfig
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultTimeoutDuration
	}

	if settings.ginMode != "" {
		logger.Info("Setting Gin mode", "mode", settings.ginMode)
		gin.SetMode(settings.ginMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	if tracing := utils.LoadTracingSettings(); tracing.Enabled {
		engine.Use(otelgin.Middleware(tracing.ServiceName))
		logger.Info("Tracing middleware enabled")
	}

	// Gin trusts every proxy unless told otherwise, which would let clients pick their own rate limit key.
	if err := engine.SetTrustedProxies(settings.trustedProxies); err != nil {
		logger.Error("Invalid TRUSTED_PROXIES; disabling trusted proxies", "error", err)
		_ = engine.SetTrustedProxies(nil)
	} else if settings.trustedProxies == nil {
		logger.Info("Trusted proxies disabled (TRUSTED_PROXIES not set)")
	}

	rs := &RouterService{
		engine:                 engine,
		logger:                 logger,
		settings:               settings,
		config:                 cfg,
		registry:               prometheus.NewRegistry(),
		redisClient:            usableRedisClient(logger, cache),
		handlerToControllerMap: make(map[string]*RESTController),
		rateLimitOverrides:     make(map[string]ratelimit.RateLimiter),
	}

	rs.rateLimiter = rs.NewThrottle(cfg.RateLimitRequests, cfg.RateLimitWindow)
	rs.logger.Info("Rate limiting initialized",
		"requests", cfg.RateLimitRequests,
		"window", cfg.RateLimitWindow,
		"distributed", rs.redisClient != nil,
	)

	rs.mountMetrics()

	engine.Use(
		rs.securityHeadersMiddleware(),
		rs.maxBodySizeMiddleware(),
		rs.corsMiddleware(),
		rs.rateLimitMiddleware(),
		rs.timeoutMiddleware(),
		rs.correlationIDMiddleware(),
		rs.loggerInjectionMiddleware(),
		rs.requestLoggingMiddleware(),
	)

	engine.HandleMethodNotAllowed = true
	engine.RedirectTrailingSlash = true

	engine.NoRoute(func(c *gin.Context) {
		logger.WithCorrelationID(c.Request.Context()).Warn("Route not found", "path", c.Request.URL.Path)
		result := ErrorFrom(apperrors.NewNotFoundError("Route not found"))
		c.JSON(result.StatusCode, result.ToJSON())
	})

	engine.NoMethod(func(c *gin.Context) {
		logger.WithCorrelationID(c.Request.Context()).Warn("Method not allowed", "method", c.Request.Method, "path", c.Request.URL.Path)
		result := ErrorFrom(apperrors.New(apperrors.ErrorTypeMethodNotAllowed, "Method not allowed", nil))
		c.JSON(result.StatusCode, result.ToJSON())
	})

	// Handlers run on the serving goroutine, so deadlines are enforced by the server timeouts.
	rs.server = &http.Server{
		Addr:              ":" + settings.port,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Router service initialized")
	return rs
}

func usableRedisClient(logger *log.Logger, cache Cache) *redis.Client {
	if cache == nil {
		return nil
	}

	provider, ok := cache.(RedisClientProvider)
	if !ok || provider.GetClient() == nil {
		return nil
	}

	client := provider.GetClient()
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("Redis unavailable for rate limiting, falling back to in-memory", "error", err)
		return nil
	}
	return client
}

// NewThrottle builds a limiter that shares the router's backend: Redis when a cache is configured, memory otherwise.
func (routerService *RouterService) NewThrottle(requests int, window time.Duration) ratelimit.RateLimiter {
	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: requests,
		Window:   window,
		Redis:    routerService.redisClient,
		Logger:   routerService.logger,
	})
}

func (routerService *RouterService) GetDefaultRateLimitConfig() (int, time.Duration) {
	return routerService.config.RateLimitRequests, routerService.config.RateLimitWindow
}

func (routerService *RouterService) GetEngine() *gin.Engine {
	return routerService.engine
}

// MetricsRegisterer is the registry served on /metrics. Domain collectors register here.
func (routerService *RouterService) MetricsRegisterer() prometheus.Registerer {
	return routerService.registry
}

// SetHTMLTemplate installs the templates used by results built with HTMLResult.
func (routerService *RouterService) SetHTMLTemplate(tmpl *template.Template) {
	routerService.engine.SetHTMLTemplate(tmpl)
}

func (routerService *RouterService) GetLogger(c *RequestContext) *log.Logger {
	return routerService.logger.WithCorrelationID(c.Request.Context())
}

func (routerService *RouterService) Cleanup() {
	closed := map[ratelimit.RateLimiter]bool{}
	limiters := []ratelimit.RateLimiter{routerService.rateLimiter}
	for _, limiter := range routerService.rateLimitOverrides {
		limiters = append(limiters, limiter)
	}

	for _, limiter := range limiters {
		if limiter == nil || closed[limiter] {
			continue
		}
		closed[limiter] = true
		if err := limiter.Close(); err != nil {
			routerService.logger.Error("Failed to close rate limiter", "error", err)
		}
	}
	routerService.logger.Info("Router service cleanup completed")
}

func (routerService *RouterService) MountController(controller *RESTController) {
	controller.prepare(routerService, controller)

	routerService.logger.Info("Controller mounted",
		"name", controller.name,
		"path", controller.mountPoint,
		"version", controller.version,
		"handlers", controller.handlerCount,
	)
}

func (routerService *RouterService) RunHTTPServer() error {
	routerService.logger.Info("Starting HTTP server", "addr", routerService.server.Addr)

	if err := routerService.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		routerService.logger.Error("Failed to start HTTP server", "error", err)
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

func (routerService *RouterService) Shutdown(ctx context.Context) error {
	routerService.logger.Info("Shutting down HTTP server gracefully...")
	return routerService.server.Shutdown(ctx)
}
