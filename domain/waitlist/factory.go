package waitlist

import (
	"github.com/jarfuel/waitlist-api/config/router"
	"github.com/jarfuel/waitlist-api/internal/log"
	"gorm.io/gorm"
)

type WaitlistServiceFactory interface {
	CreateRepository() WaitlistRepository
	CreateService() WaitlistService
	CreateController() *router.RESTController
}

type DefaultWaitlistServiceFactory struct {
	db         *gorm.DB
	logger     *log.Logger
	serviceCfg *ServiceConfig

	// Built once so the waitlist and referral controllers share one store.
	repository WaitlistRepository
}

// NewWaitlistServiceFactory wires the domain. A nil db selects the in-process
// store; cfg carries the optional cache, publisher and count baseline.
func NewWaitlistServiceFactory(db *gorm.DB, logger *log.Logger, cfg *ServiceConfig) WaitlistServiceFactory {
	return &DefaultWaitlistServiceFactory{
		db:         db,
		logger:     logger,
		serviceCfg: cfg,
		repository: NewWaitlistRepository(db),
	}
}

func (f *DefaultWaitlistServiceFactory) CreateRepository() WaitlistRepository {
	return f.repository
}

func (f *DefaultWaitlistServiceFactory) CreateService() WaitlistService {
	return NewWaitlistService(f.logger, f.repository, f.serviceCfg)
}

func (f *DefaultWaitlistServiceFactory) CreateController() *router.RESTController {
	return NewWaitlistController(f.CreateService(), f.logger)
}
