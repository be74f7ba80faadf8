package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryRateLimiter_AllowsWithinLimit(t *testing.T) {
	limiter := NewInMemoryRateLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		limited, err := limiter.IsLimited("client-a")
		assert.NoError(t, err)
		assert.False(t, limited, "request %d should be allowed", i+1)
	}
}

func TestInMemoryRateLimiter_BlocksOverLimit(t *testing.T) {
	limiter := NewInMemoryRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		limited, err := limiter.IsLimited("client-b")
		assert.NoError(t, err)
		assert.False(t, limited)
	}

	limited, err := limiter.IsLimited("client-b")
	assert.NoError(t, err)
	assert.True(t, limited, "fourth request within the window should be limited")
}

func TestInMemoryRateLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewInMemoryRateLimiter(1, time.Minute)

	limited, err := limiter.IsLimited("client-c")
	assert.NoError(t, err)
	assert.False(t, limited)

	limited, err = limiter.IsLimited("client-c")
	assert.NoError(t, err)
	assert.True(t, limited)

	limited, err = limiter.IsLimited("client-d")
	assert.NoError(t, err)
	assert.False(t, limited, "a different key must not share the bucket")
}

func TestInMemoryRateLimiter_EmptyKey(t *testing.T) {
	limiter := NewInMemoryRateLimiter(1, time.Minute)

	limited, err := limiter.IsLimited("")
	assert.NoError(t, err)
	assert.False(t, limited)

	limited, err = limiter.IsLimited("")
	assert.NoError(t, err)
	assert.True(t, limited)
}

func TestGetLimitDetails(t *testing.T) {
	limiter := NewInMemoryRateLimiter(42, 30*time.Second)

	requests, window := limiter.GetLimitDetails()
	assert.Equal(t, 42, requests)
	assert.Equal(t, 30*time.Second, window)
}
