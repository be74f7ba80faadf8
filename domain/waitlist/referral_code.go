package waitlist

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"

	apperrors "github.com/jarfuel/waitlist-api/pkg/errors"
)

const (
	referralCodePrefix   = "JF-"
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referralCodeLength   = 8
)

var referralCodePattern = regexp.MustCompile(`^JF-[A-Z0-9]{8}$`)

// NormalizeReferralCode trims and uppercases a code so lookups are
// case-insensitive. It does not validate the shape.
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidReferralCode reports whether a normalized code has the JF-XXXXXXXX shape.
func IsValidReferralCode(code string) bool {
	return referralCodePattern.MatchString(code)
}

// GenerateReferralCode produces a new code using crypto/rand. Uniqueness is
// enforced by the store's unique index; callers retry on collision.
func GenerateReferralCode() (string, error) {
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	buf := make([]byte, referralCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", apperrors.NewInternalServerError("failed to generate referral code", err)
		}
		buf[i] = referralCodeAlphabet[n.Int64()]
	}
	return referralCodePrefix + string(buf), nil
}
