package waitlist

import (
	"errors"

	apperrors "github.com/jarfuel/waitlist-api/pkg/errors"
)

// Sentinel errors for the waitlist domain.
var (
	ErrEntryNotFound        = errors.New("waitlist entry not found")
	ErrEmailAlreadyJoined   = errors.New("email is already on the waitlist")
	ErrReferralCodeNotFound = errors.New("referral code not found")
	ErrReferralCodeTaken    = errors.New("referral code is already taken")
	ErrInvalidReferralCode  = errors.New("referral code is malformed")
)

func NewEntryNotFoundError() error {
	return apperrors.NewNotFoundError(ErrEntryNotFound.Error(), ErrEntryNotFound)
}

func NewEmailAlreadyJoinedError(cause error) error {
	if cause == nil {
		cause = ErrEmailAlreadyJoined
	}
	return apperrors.NewConflictError(ErrEmailAlreadyJoined.Error(), cause)
}

func NewReferralCodeTakenError(cause error) error {
	if cause == nil {
		cause = ErrReferralCodeTaken
	}
	return apperrors.NewConflictError(ErrReferralCodeTaken.Error(), cause)
}

func NewReferralCodeNotFoundError() error {
	return apperrors.NewNotFoundError(ErrReferralCodeNotFound.Error(), ErrReferralCodeNotFound)
}

func NewInvalidReferralCodeError() error {
	return apperrors.NewInvalidRequestError(ErrInvalidReferralCode.Error(), ErrInvalidReferralCode)
}
