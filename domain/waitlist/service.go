package waitlist

import (
	"context"
	"encoding/json"
	"errors"
	"net/mail"
	"strconv"
	"time"

	"github.com/jarfuel/waitlist-api/internal/log"
	"github.com/jarfuel/waitlist-api/internal/models"
	"github.com/jarfuel/waitlist-api/pkg/constants"
	apperrors "github.com/jarfuel/waitlist-api/pkg/errors"
)

const (
	// InsertedChannel is the pub/sub channel notified after each new signup.
	InsertedChannel = "waitlist:inserted"

	countCacheKey = "waitlist:count"
	countCacheTTL = 30 * time.Second

	// referralCodeAttempts bounds collision retries on the code unique index.
	referralCodeAttempts = 5
)

// Cache is the subset of the application cache the waitlist domain uses.
// A nil Cache disables display-count caching.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher broadcasts signup events, typically over Redis pub/sub.
// A nil EventPublisher disables notifications.
type EventPublisher interface {
	Publish(ctx context.Context, channel, message string) error
}

type WaitlistService interface {
	// Join adds an email to the waitlist. Re-joining with a known email is
	// idempotent: the original entry is returned and nobody is credited.
	Join(ctx context.Context, req *JoinWaitlistRequest) (*JoinWaitlistResponse, error)

	// GetCount returns the display count (real count plus the configured
	// baseline offset) and the signup goal.
	GetCount(ctx context.Context) (*WaitlistCountResponse, error)

	// GetPosition returns the queue position for a previously joined email.
	GetPosition(ctx context.Context, email string) (*WaitlistPositionResponse, error)

	// GetEntryByReferralCode retrieves the entry that owns a referral code.
	GetEntryByReferralCode(ctx context.Context, code string) (*WaitlistEntryResponse, error)

	// GetAllEntries retrieves every entry, ordered by position. Admin only.
	GetAllEntries(ctx context.Context) ([]WaitlistEntryResponse, error)
}

type waitlistService struct {
	logger        *log.Logger
	repository    WaitlistRepository
	cache         Cache
	publisher     EventPublisher
	countBaseline int
}

type ServiceConfig struct {
	// Cache and Publisher may be nil; the service then skips those paths.
	Cache     Cache
	Publisher EventPublisher
	// CountBaseline is added to the real entry count for every display count.
	CountBaseline int
}

func NewWaitlistService(logger *log.Logger, repository WaitlistRepository, cfg *ServiceConfig) WaitlistService {
	if cfg == nil {
		cfg = &ServiceConfig{CountBaseline: constants.DefaultCountBaseline}
	}
	return &waitlistService{
		logger:        logger,
		repository:    repository,
		cache:         cfg.Cache,
		publisher:     cfg.Publisher,
		countBaseline: cfg.CountBaseline,
	}
}

func (s *waitlistService) Join(ctx context.Context, req *JoinWaitlistRequest) (*JoinWaitlistResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		logger.Error("Join received empty request")
		return nil, apperrors.NewInvalidRequestError("request cannot be nil", nil)
	}

	email := NormalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		logger.Error("Join received invalid email format")
		return nil, apperrors.NewInvalidRequestError("invalid email format", nil)
	}

	if existing, err := s.repository.FindEntryByEmail(ctx, email); err == nil {
		return s.alreadyJoinedResponse(ctx, existing), nil
	} else if !isNotFound(err) {
		logger.Error("Failed to look up waitlist entry", "error", err)
		return nil, err
	}

	referrer := s.resolveReferrer(ctx, logger, req.ReferredBy)

	entry := ToWaitlistEntryModel(req)
	if referrer != nil {
		code := referrer.ReferralCode
		entry.ReferredBy = &code
	}

	created, err := s.insertWithFreshCode(ctx, entry)
	if err != nil {
		// Lost a concurrent race on the email index: return the winner.
		if apperrors.GetErrorType(err) == apperrors.ErrorTypeConflict {
			if existing, findErr := s.repository.FindEntryByEmail(ctx, email); findErr == nil {
				return s.alreadyJoinedResponse(ctx, existing), nil
			}
		}
		logger.Error("Failed to create waitlist entry", "error", err)
		return nil, err
	}

	if referrer != nil && referrer.Email != created.Email {
		if _, err := s.repository.IncrementReferralCount(ctx, referrer.ReferralCode); err != nil {
			// Crediting must never fail the signup itself.
			logger.Error("Failed to credit referrer", "referral_code", referrer.ReferralCode, "error", err)
		}
	}

	s.invalidateCountCache(ctx, logger)
	s.publishInserted(ctx, logger, created)

	count, err := s.repository.CountEntries(ctx)
	if err != nil {
		logger.Error("Failed to count waitlist entries after insert", "error", err)
		count = int64(created.Position)
	}

	response := ToWaitlistEntryResponse(created)
	return &JoinWaitlistResponse{
		Entry:         response,
		AlreadyJoined: false,
		TotalCount:    s.displayCount(count),
	}, nil
}

func (s *waitlistService) GetCount(ctx context.Context) (*WaitlistCountResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, countCacheKey); err == nil && raw != "" {
			if cached, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
				return &WaitlistCountResponse{Count: cached, Goal: constants.DefaultWaitlistGoal}, nil
			}
		}
	}

	count, err := s.repository.CountEntries(ctx)
	if err != nil {
		logger.Error("Failed to count waitlist entries", "error", err)
		return nil, err
	}

	display := s.displayCount(count)

	if s.cache != nil {
		if err := s.cache.Set(ctx, countCacheKey, strconv.FormatInt(display, 10), countCacheTTL); err != nil {
			logger.Warn("Failed to cache waitlist count", "error", err)
		}
	}

	return &WaitlistCountResponse{Count: display, Goal: constants.DefaultWaitlistGoal}, nil
}

func (s *waitlistService) GetPosition(ctx context.Context, email string) (*WaitlistPositionResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	normalized := NormalizeEmail(email)
	if _, err := mail.ParseAddress(normalized); err != nil {
		logger.Error("GetPosition received invalid email format")
		return nil, apperrors.NewInvalidRequestError("invalid email format", nil)
	}

	entry, err := s.repository.FindEntryByEmail(ctx, normalized)
	if err != nil {
		logger.Error("Failed to find waitlist entry", "error", err)
		return nil, err
	}

	return &WaitlistPositionResponse{Email: entry.Email, Position: entry.Position}, nil
}

func (s *waitlistService) GetEntryByReferralCode(ctx context.Context, code string) (*WaitlistEntryResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	normalized := NormalizeReferralCode(code)
	if !IsValidReferralCode(normalized) {
		return nil, NewInvalidReferralCodeError()
	}

	entry, err := s.repository.FindEntryByReferralCode(ctx, normalized)
	if err != nil {
		logger.Error("Failed to find waitlist entry by referral code", "error", err)
		return nil, err
	}

	response := ToWaitlistEntryResponse(entry)
	return &response, nil
}

func (s *waitlistService) GetAllEntries(ctx context.Context) ([]WaitlistEntryResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	entries, err := s.repository.GetAllEntries(ctx)
	if err != nil {
		logger.Error("Failed to get all waitlist entries", "error", err)
		return nil, err
	}

	responses := make([]WaitlistEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, ToWaitlistEntryResponse(entry))
	}

	return responses, nil
}

// resolveReferrer looks up the entry behind a submitted referral code.
// Malformed or unknown codes degrade to an unreferred signup rather than an
// error.
func (s *waitlistService) resolveReferrer(ctx context.Context, logger *log.Logger, rawCode string) *models.WaitlistEntry {
	code := NormalizeReferralCode(rawCode)
	if code == "" {
		return nil
	}

	if !IsValidReferralCode(code) {
		logger.Warn("Ignoring malformed referral code", "code", code)
		return nil
	}

	referrer, err := s.repository.FindEntryByReferralCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			logger.Warn("Referral code does not exist; joining without referral", "code", code)
		} else {
			logger.Error("Failed to resolve referral code", "code", code, "error", err)
		}
		return nil
	}

	return referrer
}

// insertWithFreshCode generates a referral code and inserts, retrying on code
// collisions. An email conflict is surfaced unchanged on the first attempt
// since the caller pre-checked the email.
func (s *waitlistService) insertWithFreshCode(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	var lastErr error

	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := GenerateReferralCode()
		if err != nil {
			return nil, err
		}
		entry.ReferralCode = code

		created, err := s.repository.InsertEntry(ctx, entry)
		if err == nil {
			return created, nil
		}
		lastErr = err

		if apperrors.GetErrorType(err) != apperrors.ErrorTypeConflict {
			return nil, err
		}
		// Conflict on the email index means the caller lost a race, not a
		// code collision. Hand it back for idempotent resolution.
		if _, findErr := s.repository.FindEntryByEmail(ctx, entry.Email); findErr == nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (s *waitlistService) alreadyJoinedResponse(ctx context.Context, entry *models.WaitlistEntry) *JoinWaitlistResponse {
	count, err := s.repository.CountEntries(ctx)
	if err != nil {
		count = int64(entry.Position)
	}

	return &JoinWaitlistResponse{
		Entry:         ToWaitlistEntryResponse(entry),
		AlreadyJoined: true,
		TotalCount:    s.displayCount(count),
	}
}

func (s *waitlistService) displayCount(realCount int64) int64 {
	return realCount + int64(s.countBaseline)
}

func (s *waitlistService) invalidateCountCache(ctx context.Context, logger *log.Logger) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, countCacheKey); err != nil {
		logger.Warn("Failed to invalidate waitlist count cache", "error", err)
	}
}

func (s *waitlistService) publishInserted(ctx context.Context, logger *log.Logger, entry *models.WaitlistEntry) {
	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"id":       entry.ID,
		"position": entry.Position,
	})
	if err != nil {
		logger.Error("Failed to encode waitlist event", "error", err)
		return
	}

	if err := s.publisher.Publish(ctx, InsertedChannel, string(payload)); err != nil {
		logger.Warn("Failed to publish waitlist event", "error", err)
	}
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEntryNotFound) || errors.Is(err, ErrReferralCodeNotFound) {
		return true
	}
	return apperrors.GetErrorType(err) == apperrors.ErrorTypeNotFound
}
