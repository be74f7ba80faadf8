package referral

import (
	"github.com/jarfuel/waitlist-api/config/router"
	"github.com/jarfuel/waitlist-api/domain/waitlist"
	"github.com/jarfuel/waitlist-api/internal/log"
)

type ReferralServiceFactory interface {
	CreateService() ReferralService
	CreateController() *router.RESTController
}

type DefaultReferralServiceFactory struct {
	logger      *log.Logger
	repository  waitlist.WaitlistRepository
	siteBaseURL string
}

// NewReferralServiceFactory shares the waitlist store; referral state lives
// on waitlist entries.
func NewReferralServiceFactory(logger *log.Logger, repository waitlist.WaitlistRepository, siteBaseURL string) ReferralServiceFactory {
	return &DefaultReferralServiceFactory{
		logger:      logger,
		repository:  repository,
		siteBaseURL: siteBaseURL,
	}
}

func (f *DefaultReferralServiceFactory) CreateService() ReferralService {
	return NewReferralService(f.logger, f.repository, f.siteBaseURL)
}

func (f *DefaultReferralServiceFactory) CreateController() *router.RESTController {
	return NewReferralController(f.CreateService())
}
