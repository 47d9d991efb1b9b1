package monitoring

import (
	"github.com/akeren/raine-waitlist/config/router"
	"github.com/akeren/raine-waitlist/internal/log"
	"gorm.io/gorm"
)

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

// probeDependencies is what the health probe checks. cache may be nil: health then reports cache=0 and stays ok.
type probeDependencies struct {
	db     *gorm.DB
	logger *log.Logger
	cache  Cache
}

func NewMonitoringControllerFactory(db *gorm.DB, logger *log.Logger, cache Cache) MonitoringControllerFactory {
	return probeDependencies{db: db, logger: logger, cache: cache}
}

func (d probeDependencies) CreateController() *router.RESTController {
	return NewMonitoringController(d.db, d.logger, d.cache)
}
