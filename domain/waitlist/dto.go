package waitlist

import (
	"github.com/jarfuel/waitlist-api/internal/models"
	"github.com/jarfuel/waitlist-api/pkg/constants"
)

type JoinWaitlistRequest struct {
	Email      string `json:"email" binding:"required,email,max=255"`
	Flavor     string `json:"flavor" binding:"omitempty,oneof=vanilla chocolate"`
	WithCoffee bool   `json:"with_coffee"`
	ReferredBy string `json:"referred_by" binding:"omitempty,max=32"`
	Source     string `json:"source" binding:"omitempty,max=64"`
}

type WaitlistEntryResponse struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	ReferralCode  string  `json:"referral_code"`
	ReferredBy    *string `json:"referred_by"`
	ReferralCount int     `json:"referral_count"`
	ShareCount    int     `json:"share_count"`
	Position      int     `json:"position"`
	Source        string  `json:"source"`
	Flavor        string  `json:"flavor"`
	WithCoffee    bool    `json:"with_coffee"`
	CreatedAt     string  `json:"created_at"`
}

type JoinWaitlistResponse struct {
	Entry         WaitlistEntryResponse `json:"entry"`
	AlreadyJoined bool                  `json:"already_joined"`
	TotalCount    int64                 `json:"total_count"`
}

type WaitlistCountResponse struct {
	Count int64 `json:"count"`
	Goal  int   `json:"goal"`
}

type WaitlistPositionResponse struct {
	Email    string `json:"email"`
	Position int    `json:"position"`
}

// ========================================
// Mappers
// ========================================

func ToWaitlistEntryModel(req *JoinWaitlistRequest) *models.WaitlistEntry {
	if req == nil {
		return nil
	}

	flavor := req.Flavor
	if flavor == "" {
		flavor = models.FlavorVanilla
	}
	source := req.Source
	if source == "" {
		source = models.SourceWebsite
	}

	return &models.WaitlistEntry{
		Email:      NormalizeEmail(req.Email),
		Flavor:     flavor,
		WithCoffee: req.WithCoffee,
		Source:     source,
	}
}

func ToWaitlistEntryResponse(entry *models.WaitlistEntry) WaitlistEntryResponse {
	if entry == nil {
		return WaitlistEntryResponse{}
	}
	return WaitlistEntryResponse{
		ID:            entry.ID,
		Email:         entry.Email,
		ReferralCode:  entry.ReferralCode,
		ReferredBy:    entry.ReferredBy,
		ReferralCount: entry.ReferralCount,
		ShareCount:    entry.ShareCount,
		Position:      entry.Position,
		Source:        entry.Source,
		Flavor:        entry.Flavor,
		WithCoffee:    entry.WithCoffee,
		CreatedAt:     entry.CreatedAt.Format(constants.RFC3339DateTimeFormat),
	}
}
