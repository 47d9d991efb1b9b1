package domain

import (
	"github.com/akeren/raine-waitlist/config"
	"github.com/akeren/raine-waitlist/domain/landing"
	"github.com/akeren/raine-waitlist/domain/monitoring"
	"github.com/akeren/raine-waitlist/domain/waitlist"
)

func SetupCoreDomain(appConfig *config.ApplicationConfig) {
	if appConfig.Config == nil {
		appConfig.Config = config.NewAppConfig()
	}
	waitlistCfg := appConfig.Config.Waitlist

	var statsStore waitlist.KeyValueStore
	if appConfig.Cache != nil {
		statsStore = appConfig.Cache
	}

	waitlistFactory := waitlist.NewWaitlistServiceFactory(appConfig.DB, appConfig.Logger, waitlist.FactoryOptions{
		Service: waitlist.ServiceConfig{
			DefaultAppSlug:   waitlistCfg.AppSlug,
			SubmissionLimit:  waitlistCfg.SubmissionLimit,
			SubmissionWindow: waitlistCfg.SubmissionWindow,
		},
		StatsStore:    statsStore,
		StatsCacheTTL: waitlistCfg.StatsCacheTTL,
		Registerer:    appConfig.RouterService.MetricsRegisterer(),
	})

	appConfig.RouterService.MountController(monitoring.NewMonitoringControllerFactory(appConfig.DB, appConfig.Logger, appConfig.Cache).CreateController())
	appConfig.RouterService.MountController(waitlistFactory.CreateController())
	appConfig.RouterService.MountController(landing.NewLandingController(waitlistFactory.CreateService(), landing.Config{
		AppSlug:      waitlistCfg.AppSlug,
		WaitlistMode: waitlistCfg.WaitlistMode,
	}))
}
