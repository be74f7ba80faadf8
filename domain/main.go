package domain

import (
	"github.com/jarfuel/waitlist-api/config"
	"github.com/jarfuel/waitlist-api/domain/monitoring"
	"github.com/jarfuel/waitlist-api/domain/referral"
	"github.com/jarfuel/waitlist-api/domain/waitlist"
)

func SetupCoreDomain(appConfig *config.ApplicationConfig) {
	var cache waitlist.Cache
	var publisher waitlist.EventPublisher
	if appConfig.Cache != nil {
		cache = appConfig.Cache
		if p, ok := appConfig.Cache.(waitlist.EventPublisher); ok {
			publisher = p
		}
	}

	waitlistFactory := waitlist.NewWaitlistServiceFactory(appConfig.DB, appConfig.Logger, &waitlist.ServiceConfig{
		Cache:         cache,
		Publisher:     publisher,
		CountBaseline: appConfig.Config.CountBaseline,
	})

	// The referral domain shares the waitlist store; referral state lives on
	// waitlist entries.
	referralFactory := referral.NewReferralServiceFactory(appConfig.Logger, waitlistFactory.CreateRepository(), appConfig.Config.SiteBaseURL)

	appConfig.RouterService.MountController(monitoring.NewMonitoringController(appConfig.DB, appConfig.Logger, appConfig.Cache))
	appConfig.RouterService.MountController(waitlistFactory.CreateController())
	appConfig.RouterService.MountController(referralFactory.CreateController())
}
