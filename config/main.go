package config

import (
	"context"
	"time"

	"github.com/akeren/raine-waitlist/config/router"
	"github.com/akeren/raine-waitlist/internal/log"
	"github.com/akeren/raine-waitlist/internal/models"
	"github.com/akeren/raine-waitlist/pkg/constants"
	"github.com/akeren/raine-waitlist/pkg/utils"
	"gorm.io/gorm"
)

// ApplicationConfig owns every long-lived resource the server wires into its domains.
type ApplicationConfig struct {
	DB              *gorm.DB
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Config          *AppConfig
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	Waitlist          WaitlistConfig
}

// WaitlistConfig holds the signup knobs read from APP_SLUG, IS_WAITLIST and WAITLIST_*.
type WaitlistConfig struct {
	AppSlug          string
	WaitlistMode     bool
	SubmissionLimit  int
	SubmissionWindow time.Duration
	StatsCacheTTL    time.Duration
}

func NewWaitlistConfig() WaitlistConfig {
	return WaitlistConfig{
		AppSlug:          utils.GetEnvTrimmedOrDefault("APP_SLUG", constants.DefaultAppSlug),
		WaitlistMode:     utils.IsEnvTrue("IS_WAITLIST"),
		SubmissionLimit:  utils.GetEnvPositiveInt("WAITLIST_SUBMISSION_LIMIT", constants.DefaultSubmissionLimit),
		SubmissionWindow: utils.GetEnvPositiveDuration("WAITLIST_SUBMISSION_WINDOW", constants.DefaultSubmissionWindow()),
		StatsCacheTTL:    utils.GetEnvPositiveDuration("STATS_CACHE_TTL", constants.DefaultStatsCacheTTL),
	}
}

// NewAppConfig reads the router and waitlist settings. Invalid values fall back to defaults.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		RateLimitRequests: utils.GetEnvPositiveInt("RATE_LIMIT_REQUESTS", constants.DefaultRateLimitRequests),
		RateLimitWindow:   utils.GetEnvPositiveDuration("RATE_LIMIT_WINDOW", constants.DefaultRateLimitWindow()),
		RequestTimeout:    utils.GetEnvPositiveDuration("REQUEST_TIMEOUT", constants.DefaultRequestTimeout),
		Waitlist:          NewWaitlistConfig(),
	}
}

func (ac *AppConfig) routerConfig() *router.RouterConfig {
	return &router.RouterConfig{
		RateLimitRequests: ac.RateLimitRequests,
		RateLimitWindow:   ac.RateLimitWindow,
		RequestTimeout:    ac.RequestTimeout,
	}
}

// Cleanup releases resources in reverse order of acquisition. Safe to call on a partial config.
func (ac *ApplicationConfig) Cleanup() {
	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	closeCache(ac.Cache, ac.Logger)

	if ac.DB != nil {
		CloseDatabase(ac.DB, ac.Logger)
	}

	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to flush traces", "error", err)
		}
	}

	ac.Logger.Info("Application cleanup completed")
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	appEnv := GetAppEnv()
	if autoMigrate {
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
	}

	app := &ApplicationConfig{Logger: logger, Config: NewAppConfig()}

	var err error
	if app.TracingShutdown, err = SetupTracing(logger); err != nil {
		return nil, err
	}

	if app.DB, err = NewDatabase(logger, NewDBConfigFromEnv()); err != nil {
		app.Cleanup()
		return nil, err
	}

	if autoMigrate {
		if err := AutoMigrate(logger, app.DB, models.ModelRegistry...); err != nil {
			app.Cleanup()
			return nil, err
		}
	}

	app.Cache = OpenCache(logger, NewCacheConfigFromEnv())
	app.RouterService = router.CreateRouterService(logger, app.Cache, app.Config.routerConfig())

	logger.Info("Application configuration loaded",
		"app_env", appEnv,
		"app_slug", app.Config.Waitlist.AppSlug,
		"waitlist_mode", app.Config.Waitlist.WaitlistMode,
		"redis", app.Cache != nil,
	)

	return app, nil
}
