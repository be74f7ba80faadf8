package constants

import "time"

// RFC 3339 date-time format string.
// Use this format for all date-time serialization and communication with external systems.
const RFC3339DateTimeFormat = "2006-01-02T15:04:05Z07:00"

// Default rate limiting configuration
const (
	// DefaultRateLimitRequests is the default number of requests allowed per time window
	DefaultRateLimitRequests = 100
	// DefaultRateLimitWindowMinutes is the default time window for rate limiting
	DefaultRateLimitWindowMinutes = 1
)

// DefaultRateLimitWindow returns the default rate limit window duration
func DefaultRateLimitWindow() time.Duration {
	return time.Duration(DefaultRateLimitWindowMinutes) * time.Minute
}

// DefaultCountBaseline is the cosmetic display-count baseline added on top of
// the true waitlist size. The displayed number is always real count + baseline;
// the repositories themselves only ever report the true count.
const DefaultCountBaseline = 147

// DefaultWaitlistGoal is the signup goal used for progress displays.
const DefaultWaitlistGoal = 250
