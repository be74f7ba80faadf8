package referral

import (
	"net/url"

	"github.com/jarfuel/waitlist-api/domain/waitlist"
	apperrors "github.com/jarfuel/waitlist-api/pkg/errors"
)

// RefQueryParam is the query parameter carrying a referral code in share links.
const RefQueryParam = "ref"

// ExtractReferralCode pulls a referral code out of a landing URL. Malformed
// URLs and codes that do not match the expected shape yield "".
func ExtractReferralCode(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	code := waitlist.NormalizeReferralCode(parsed.Query().Get(RefQueryParam))
	if !waitlist.IsValidReferralCode(code) {
		return ""
	}

	return code
}

// BuildReferralURL renders the shareable landing URL for a code, preserving
// any path or query the base already carries.
func BuildReferralURL(baseURL, code string) (string, error) {
	normalized := waitlist.NormalizeReferralCode(code)
	if !waitlist.IsValidReferralCode(normalized) {
		return "", waitlist.NewInvalidReferralCodeError()
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", apperrors.NewInternalServerError("invalid site base URL", err)
	}

	query := parsed.Query()
	query.Set(RefQueryParam, normalized)
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
