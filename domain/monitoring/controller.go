package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/akeren/raine-waitlist/config/router"
	"github.com/akeren/raine-waitlist/internal/log"
	"gorm.io/gorm"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// Probe throttle, counted per route and client.
const monitoringRequestsPerMinute = 10

const probeTimeout = 2 * time.Second

type Cache interface {
	Ping(ctx context.Context) error
}

// HealthStatus uses 1 for healthy and 0 for unhealthy or not configured.
type HealthStatus struct {
	Status   string `json:"status"`
	Database int    `json:"database"`
	Cache    int    `json:"cache"`
	Uptime   int    `json:"uptime"` // seconds
}

type MonitoringController struct {
	db        *gorm.DB
	logger    *log.Logger
	cache     Cache
	startTime time.Time
}

func NewMonitoringController(db *gorm.DB, logger *log.Logger, cache Cache) *router.RESTController {
	ctrl := &MonitoringController{
		db:        db,
		logger:    logger,
		cache:     cache,
		startTime: time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(rs *router.RouterService, c *router.RESTController) {
			limiter := rs.NewThrottle(monitoringRequestsPerMinute, time.Minute)

			rs.AddGetHandler(c, limiter, "status", ctrl.status)
			rs.AddGetHandler(c, limiter, "health", ctrl.health)
		},
	)
}

func (ctrl *MonitoringController) status(_ *router.RequestContext) *router.ServiceResult {
	return router.OKResult("Waitlist service is operational.", "Monitoring successful")
}

// health answers 503 only when the database is unreachable; a missing or failing cache degrades.
func (ctrl *MonitoringController) health(c *router.RequestContext) *router.ServiceResult {
	logger := router.GetLogger(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	healthStatus := ctrl.check(ctx, logger)

	statusCode := http.StatusOK
	if healthStatus.Status == StatusDown {
		statusCode = http.StatusServiceUnavailable
	}

	return router.ErrorResult(statusCode, "raine-waitlist health check completed", healthStatus)
}

func (ctrl *MonitoringController) check(ctx context.Context, logger *log.Logger) HealthStatus {
	hs := HealthStatus{
		Status: StatusOK,
		Uptime: int(time.Since(ctrl.startTime).Seconds()),
	}

	if ctrl.pingDatabase(ctx) {
		hs.Database = 1
	} else {
		hs.Status = StatusDown
		logger.Error("Database health check failed")
	}

	switch {
	case ctrl.cache == nil:
		logger.Debug("Cache not configured, cache health check skipped")
	case ctrl.cache.Ping(ctx) == nil:
		hs.Cache = 1
	default:
		logger.Warn("Cache health check failed")
		if hs.Status == StatusOK {
			hs.Status = StatusDegraded
		}
	}

	return hs
}

func (ctrl *MonitoringController) pingDatabase(ctx context.Context) bool {
	if ctrl.db == nil {
		return false
	}
	sqlDB, err := ctrl.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}
