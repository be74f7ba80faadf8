package referral

import (
	"context"

	"github.com/jarfuel/waitlist-api/domain/waitlist"
	"github.com/jarfuel/waitlist-api/internal/log"
)

type ReferralService interface {
	// GetStats returns referral progress for a code: counts, earned reward
	// weeks and the shareable URL.
	GetStats(ctx context.Context, code string) (*ReferralStatsResponse, error)

	// TrackShare records one share action for a code and returns the new total.
	TrackShare(ctx context.Context, code string) (*TrackShareResponse, error)

	// GetLink returns the shareable landing URL for a code.
	GetLink(ctx context.Context, code string) (*ReferralLinkResponse, error)
}

// referralService reads and writes through the waitlist store; referrals are
// attributes of waitlist entries, not a separate table.
type referralService struct {
	logger      *log.Logger
	repository  waitlist.WaitlistRepository
	siteBaseURL string
}

func NewReferralService(logger *log.Logger, repository waitlist.WaitlistRepository, siteBaseURL string) ReferralService {
	return &referralService{
		logger:      logger,
		repository:  repository,
		siteBaseURL: siteBaseURL,
	}
}

func (s *referralService) GetStats(ctx context.Context, code string) (*ReferralStatsResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	normalized := waitlist.NormalizeReferralCode(code)
	if !waitlist.IsValidReferralCode(normalized) {
		return nil, waitlist.NewInvalidReferralCodeError()
	}

	entry, err := s.repository.FindEntryByReferralCode(ctx, normalized)
	if err != nil {
		logger.Error("Failed to fetch referral stats", "code", normalized, "error", err)
		return nil, err
	}

	referralURL, err := BuildReferralURL(s.siteBaseURL, normalized)
	if err != nil {
		logger.Error("Failed to build referral URL", "code", normalized, "error", err)
		return nil, err
	}

	return &ReferralStatsResponse{
		ReferralCode:  entry.ReferralCode,
		Position:      entry.Position,
		ReferralCount: entry.ReferralCount,
		ShareCount:    entry.ShareCount,
		RewardWeeks:   entry.ReferralCount * RewardWeeksPerReferral,
		ReferralURL:   referralURL,
	}, nil
}

func (s *referralService) TrackShare(ctx context.Context, code string) (*TrackShareResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	normalized := waitlist.NormalizeReferralCode(code)
	if !waitlist.IsValidReferralCode(normalized) {
		return nil, waitlist.NewInvalidReferralCodeError()
	}

	shareCount, err := s.repository.IncrementShareCount(ctx, normalized)
	if err != nil {
		logger.Error("Failed to record share", "code", normalized, "error", err)
		return nil, err
	}

	return &TrackShareResponse{
		ReferralCode: normalized,
		ShareCount:   shareCount,
	}, nil
}

func (s *referralService) GetLink(ctx context.Context, code string) (*ReferralLinkResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	normalized := waitlist.NormalizeReferralCode(code)
	if !waitlist.IsValidReferralCode(normalized) {
		return nil, waitlist.NewInvalidReferralCodeError()
	}

	// The code must belong to a real entry before we hand out a link.
	if _, err := s.repository.FindEntryByReferralCode(ctx, normalized); err != nil {
		logger.Error("Failed to resolve referral code for link", "code", normalized, "error", err)
		return nil, err
	}

	referralURL, err := BuildReferralURL(s.siteBaseURL, normalized)
	if err != nil {
		logger.Error("Failed to build referral URL", "code", normalized, "error", err)
		return nil, err
	}

	return &ReferralLinkResponse{
		ReferralCode: normalized,
		ReferralURL:  referralURL,
	}, nil
}
