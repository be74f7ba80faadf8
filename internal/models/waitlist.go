package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WaitlistEntry is a single recorded signup intent. An entry is created once
// per normalized email and is never deleted through user-facing paths.
// Position is assigned at insert time and never recomputed.
type WaitlistEntry struct {
	ID            string    `gorm:"type:text;primaryKey" json:"id"`
	Email         string    `gorm:"not null;uniqueIndex" json:"email"`
	ReferralCode  string    `gorm:"not null;uniqueIndex" json:"referral_code"`
	ReferredBy    *string   `gorm:"index" json:"referred_by"`
	ReferralCount int       `gorm:"not null;default:0" json:"referral_count"`
	ShareCount    int       `gorm:"not null;default:0" json:"share_count"`
	Position      int       `gorm:"not null;uniqueIndex" json:"position"`
	Source        string    `gorm:"not null;default:website" json:"source"`
	Flavor        string    `gorm:"not null;default:vanilla" json:"flavor"`
	WithCoffee    bool      `gorm:"not null;default:false" json:"with_coffee"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

// Flavor values accepted on signup.
const (
	FlavorVanilla   = "vanilla"
	FlavorChocolate = "chocolate"
)

// SourceWebsite is the default acquisition source for entries that do not
// declare one.
const SourceWebsite = "website"

func (e *WaitlistEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}
