package waitlist

import (
	"sync"
	"time"

	"github.com/akeren/raine-waitlist/config/router"
	"github.com/akeren/raine-waitlist/internal/log"
	"github.com/akeren/raine-waitlist/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type WaitlistServiceFactory interface {
	CreateService() WaitlistService
	CreateController() *router.RESTController
}

type FactoryOptions struct {
	Service       ServiceConfig
	StatsStore    KeyValueStore // optional; nil disables stats caching
	StatsCacheTTL time.Duration
	Registerer    prometheus.Registerer // optional
}

// DefaultWaitlistServiceFactory hands out a single service so every caller shares one submission limiter.
type DefaultWaitlistServiceFactory struct {
	db      *gorm.DB
	logger  *log.Logger
	options FactoryOptions

	once    sync.Once
	service WaitlistService
}

func NewWaitlistServiceFactory(db *gorm.DB, logger *log.Logger, options FactoryOptions) WaitlistServiceFactory {
	return &DefaultWaitlistServiceFactory{
		db:      db,
		logger:  logger,
		options: options,
	}
}

func (f *DefaultWaitlistServiceFactory) CreateService() WaitlistService {
	f.once.Do(func() {
		opts := []ServiceOption{
			WithStatsCache(NewStatsCache(f.options.StatsStore, f.options.StatsCacheTTL)),
		}
		if f.options.Registerer != nil {
			opts = append(opts, WithMetrics(f.options.Registerer))
		}

		f.service = NewWaitlistService(
			f.logger,
			NewWaitlistRepository(f.db),
			ratelimit.NewWindowLimiter(),
			f.options.Service,
			opts...,
		)
	})

	return f.service
}

func (f *DefaultWaitlistServiceFactory) CreateController() *router.RESTController {
	return NewWaitlistController(f.CreateService())
}
