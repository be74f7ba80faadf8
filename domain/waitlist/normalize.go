package waitlist

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeEmail trims surrounding whitespace and case-folds the address so
// "Test@Example.com" and "test@example.com " dedupe to the same entry.
// A Caser is stateful, so a fresh one is built per call.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}
