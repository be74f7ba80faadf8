package waitlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jarfuel/waitlist-api/internal/log"
	"github.com/jarfuel/waitlist-api/internal/models"
	apperrors "github.com/jarfuel/waitlist-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func newTestService(t *testing.T, cfg *ServiceConfig) (*MockWaitlistRepository, WaitlistService) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockRepo := NewMockWaitlistRepository(ctrl)
	logger := log.NewLoggerWithJSONOutput()
	if cfg == nil {
		cfg = &ServiceConfig{CountBaseline: 147}
	}
	service := NewWaitlistService(logger, mockRepo, cfg)
	return mockRepo, service
}

type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key], nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	messages []string
}

func (f *fakePublisher) Publish(ctx context.Context, channel, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	f.messages = append(f.messages, message)
	return nil
}

func TestJoin_Success(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "alice@example.com").
		Return(nil, NewEntryNotFoundError())
	mockRepo.EXPECT().InsertEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
			entry.ID = "entry-1"
			entry.Position = 1
			entry.CreatedAt = time.Now()
			return entry, nil
		})
	mockRepo.EXPECT().CountEntries(gomock.Any()).Return(int64(1), nil)

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{Email: "alice@example.com"})
	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.False(t, result.AlreadyJoined)
	assert.Equal(t, "alice@example.com", result.Entry.Email)
	assert.Equal(t, 1, result.Entry.Position)
	assert.Equal(t, models.FlavorVanilla, result.Entry.Flavor)
	assert.Equal(t, models.SourceWebsite, result.Entry.Source)
	assert.True(t, IsValidReferralCode(result.Entry.ReferralCode))
	assert.Equal(t, int64(148), result.TotalCount)
}

func TestJoin_NilRequest(t *testing.T) {
	_, service := newTestService(t, nil)

	result, err := service.Join(context.Background(), nil)
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
}

func TestJoin_InvalidEmail(t *testing.T) {
	_, service := newTestService(t, nil)

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{Email: "not-an-email"})
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
}

func TestJoin_NormalizesEmail(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "test@example.com").
		Return(nil, NewEntryNotFoundError())
	mockRepo.EXPECT().InsertEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
			assert.Equal(t, "test@example.com", entry.Email)
			entry.Position = 1
			return entry, nil
		})
	mockRepo.EXPECT().CountEntries(gomock.Any()).Return(int64(1), nil)

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{Email: "  Test@Example.com "})
	assert.NoError(t, err)
	assert.Equal(t, "test@example.com", result.Entry.Email)
}

func TestJoin_AlreadyJoined_Idempotent(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	existing := &models.WaitlistEntry{
		ID:           "entry-1",
		Email:        "alice@example.com",
		ReferralCode: "JF-AAAA1111",
		Position:     3,
	}

	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "alice@example.com").Return(existing, nil)
	mockRepo.EXPECT().CountEntries(gomock.Any()).Return(int64(5), nil)

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{
		Email:      "alice@example.com",
		ReferredBy: "JF-BBBB2222",
	})
	assert.NoError(t, err)
	assert.True(t, result.AlreadyJoined)
	assert.Equal(t, 3, result.Entry.Position)
	assert.Equal(t, "JF-AAAA1111", result.Entry.ReferralCode)
	assert.Equal(t, int64(152), result.TotalCount)
}

func TestJoin_WithReferral_CreditsReferrer(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	referrer := &models.WaitlistEntry{
		ID:           "entry-1",
		Email:        "referrer@example.com",
		ReferralCode: "JF-AAAA1111",
		Position:     1,
	}

	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "bob@example.com").
		Return(nil, NewEntryNotFoundError())
	mockRepo.EXPECT().FindEntryByReferralCode(gomock.Any(), "JF-AAAA1111").Return(referrer, nil)
	mockRepo.EXPECT().InsertEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
			assert.NotNil(t, entry.ReferredBy)
			assert.Equal(t, "JF-AAAA1111", *entry.ReferredBy)
			entry.Position = 2
			return entry, nil
		})
	mockRepo.EXPECT().IncrementReferralCount(gomock.Any(), "JF-AAAA1111").Return(1, nil)
	mockRepo.EXPECT().CountEntries(gomock.Any()).Return(int64(2), nil)

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{
		Email:      "bob@example.com",
		ReferredBy: "jf-aaaa1111", // codes are matched case-insensitively
	})
	assert.NoError(t, err)
	assert.False(t, result.AlreadyJoined)
}

func TestJoin_OwnReferralCode_NotCredited(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	existing := &models.WaitlistEntry{
		ID:           "entry-1",
		Email:        "alice@example.com",
		ReferralCode: "JF-AAAA1111",
		Position:     1,
	}

	// Re-joining with one's own code must not credit anyone. No
	// IncrementReferralCount expectation is set; a call would fail the test.
	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "alice@example.com").Return(existing, nil)
	mockRepo.EXPECT().CountEntries(gomock.Any()).Return(int64(3), nil)

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{
		Email:      "alice@example.com",
		ReferredBy: "JF-AAAA1111",
	})
	assert.NoError(t, err)
	assert.True(t, result.AlreadyJoined)
	assert.Equal(t, 0, result.Entry.ReferralCount)
}

func TestJoin_ReferrerResolvesToJoiner_NotCredited(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	self := &models.WaitlistEntry{
		ID:           "entry-1",
		Email:        "alice@example.com",
		ReferralCode: "JF-AAAA1111",
		Position:     1,
	}

	// The email pre-check misses (e.g. a racing insert committed after it),
	// but the referral code resolves to an entry with the joiner's own email.
	// The self-credit guard must keep IncrementReferralCount from running.
	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "alice@example.com").
		Return(nil, NewEntryNotFoundError())
	mockRepo.EXPECT().FindEntryByReferralCode(gomock.Any(), "JF-AAAA1111").Return(self, nil)
	mockRepo.EXPECT().InsertEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
			entry.Position = 2
			return entry, nil
		})
	mockRepo.EXPECT().CountEntries(gomock.Any()).Return(int64(2), nil)

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{
		Email:      "alice@example.com",
		ReferredBy: "JF-AAAA1111",
	})
	assert.NoError(t, err)
	assert.False(t, result.AlreadyJoined)
}

func TestJoin_UnknownReferralCode_JoinsWithoutReferral(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "bob@example.com").
		Return(nil, NewEntryNotFoundError())
	mockRepo.EXPECT().FindEntryByReferralCode(gomock.Any(), "JF-ZZZZ9999").
		Return(nil, NewReferralCodeNotFoundError())
	mockRepo.EXPECT().InsertEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
			assert.Nil(t, entry.ReferredBy)
			entry.Position = 1
			return entry, nil
		})
	mockRepo.EXPECT().CountEntries(gomock.Any()).Return(int64(1), nil)

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{
		Email:      "bob@example.com",
		ReferredBy: "JF-ZZZZ9999",
	})
	assert.NoError(t, err)
	assert.Nil(t, result.Entry.ReferredBy)
}

func TestJoin_MalformedReferralCode_Ignored(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "bob@example.com").
		Return(nil, NewEntryNotFoundError())
	mockRepo.EXPECT().InsertEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
			assert.Nil(t, entry.ReferredBy)
			entry.Position = 1
			return entry, nil
		})
	mockRepo.EXPECT().CountEntries(gomock.Any()).Return(int64(1), nil)

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{
		Email:      "bob@example.com",
		ReferredBy: "nonsense",
	})
	assert.NoError(t, err)
	assert.Nil(t, result.Entry.ReferredBy)
}

func TestJoin_ReferrerCreditFailure_DoesNotFailJoin(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	referrer := &models.WaitlistEntry{
		Email:        "referrer@example.com",
		ReferralCode: "JF-AAAA1111",
	}

	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "bob@example.com").
		Return(nil, NewEntryNotFoundError())
	mockRepo.EXPECT().FindEntryByReferralCode(gomock.Any(), "JF-AAAA1111").Return(referrer, nil)
	mockRepo.EXPECT().InsertEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
			entry.Position = 2
			return entry, nil
		})
	mockRepo.EXPECT().IncrementReferralCount(gomock.Any(), "JF-AAAA1111").
		Return(0, apperrors.NewDatabaseError("boom", errors.New("boom")))
	mockRepo.EXPECT().CountEntries(gomock.Any()).Return(int64(2), nil)

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{
		Email:      "bob@example.com",
		ReferredBy: "JF-AAAA1111",
	})
	assert.NoError(t, err)
	assert.NotNil(t, result)
}

func TestJoin_LostInsertRace_ReturnsExistingEntry(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	winner := &models.WaitlistEntry{
		Email:        "alice@example.com",
		ReferralCode: "JF-AAAA1111",
		Position:     7,
	}

	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "alice@example.com").
		Return(nil, NewEntryNotFoundError())
	mockRepo.EXPECT().InsertEntry(gomock.Any(), gomock.Any()).
		Return(nil, NewEmailAlreadyJoinedError(nil))
	// insertWithFreshCode re-checks, then Join resolves idempotently.
	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "alice@example.com").
		Return(winner, nil).Times(2)
	mockRepo.EXPECT().CountEntries(gomock.Any()).Return(int64(7), nil)

	result, err := service.Join(context.Background(), &JoinWaitlistRequest{Email: "alice@example.com"})
	assert.NoError(t, err)
	assert.True(t, result.AlreadyJoined)
	assert.Equal(t, 7, result.Entry.Position)
}

func TestJoin_PublishesInsertedEvent(t *testing.T) {
	publisher := &fakePublisher{}
	mockRepo, service := newTestService(t, &ServiceConfig{CountBaseline: 147, Publisher: publisher})

	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "alice@example.com").
		Return(nil, NewEntryNotFoundError())
	mockRepo.EXPECT().InsertEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
			entry.ID = "entry-1"
			entry.Position = 1
			return entry, nil
		})
	mockRepo.EXPECT().CountEntries(gomock.Any()).Return(int64(1), nil)

	_, err := service.Join(context.Background(), &JoinWaitlistRequest{Email: "alice@example.com"})
	assert.NoError(t, err)
	assert.Equal(t, []string{InsertedChannel}, publisher.channels)
	assert.Contains(t, publisher.messages[0], "entry-1")
}

func TestGetCount_AddsBaseline(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	mockRepo.EXPECT().CountEntries(gomock.Any()).Return(int64(10), nil)

	result, err := service.GetCount(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(157), result.Count)
	assert.Equal(t, 250, result.Goal)
}

func TestGetCount_ZeroBaseline(t *testing.T) {
	mockRepo, service := newTestService(t, &ServiceConfig{CountBaseline: 0})

	mockRepo.EXPECT().CountEntries(gomock.Any()).Return(int64(10), nil)

	result, err := service.GetCount(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(10), result.Count)
}

func TestGetCount_ServesFromCache(t *testing.T) {
	cache := newFakeCache()
	mockRepo, service := newTestService(t, &ServiceConfig{CountBaseline: 147, Cache: cache})

	// First call hits the repository and primes the cache.
	mockRepo.EXPECT().CountEntries(gomock.Any()).Return(int64(10), nil)

	first, err := service.GetCount(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(157), first.Count)

	// Second call must not touch the repository.
	second, err := service.GetCount(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(157), second.Count)
}

func TestJoin_InvalidatesCountCache(t *testing.T) {
	cache := newFakeCache()
	_ = cache.Set(context.Background(), countCacheKey, "157", 0)

	mockRepo, service := newTestService(t, &ServiceConfig{CountBaseline: 147, Cache: cache})

	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "alice@example.com").
		Return(nil, NewEntryNotFoundError())
	mockRepo.EXPECT().InsertEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
			entry.Position = 11
			return entry, nil
		})
	mockRepo.EXPECT().CountEntries(gomock.Any()).Return(int64(11), nil)

	_, err := service.Join(context.Background(), &JoinWaitlistRequest{Email: "alice@example.com"})
	assert.NoError(t, err)

	cached, _ := cache.Get(context.Background(), countCacheKey)
	assert.Empty(t, cached)
}

func TestGetPosition_Success(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	entry := &models.WaitlistEntry{Email: "alice@example.com", Position: 4}
	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "alice@example.com").Return(entry, nil)

	result, err := service.GetPosition(context.Background(), "Alice@Example.com")
	assert.NoError(t, err)
	assert.Equal(t, 4, result.Position)
}

func TestGetPosition_NotFound(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	mockRepo.EXPECT().FindEntryByEmail(gomock.Any(), "ghost@example.com").
		Return(nil, NewEntryNotFoundError())

	result, err := service.GetPosition(context.Background(), "ghost@example.com")
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.GetErrorType(err))
}

func TestGetEntryByReferralCode_MalformedCode(t *testing.T) {
	_, service := newTestService(t, nil)

	result, err := service.GetEntryByReferralCode(context.Background(), "hello")
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
}

func TestGetEntryByReferralCode_Success(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	entry := &models.WaitlistEntry{Email: "alice@example.com", ReferralCode: "JF-AAAA1111"}
	mockRepo.EXPECT().FindEntryByReferralCode(gomock.Any(), "JF-AAAA1111").Return(entry, nil)

	result, err := service.GetEntryByReferralCode(context.Background(), "jf-aaaa1111")
	assert.NoError(t, err)
	assert.Equal(t, "JF-AAAA1111", result.ReferralCode)
}

func TestGetAllEntries_Success(t *testing.T) {
	mockRepo, service := newTestService(t, nil)

	entries := []*models.WaitlistEntry{
		{Email: "a@example.com", Position: 1},
		{Email: "b@example.com", Position: 2},
	}
	mockRepo.EXPECT().GetAllEntries(gomock.Any()).Return(entries, nil)

	result, err := service.GetAllEntries(context.Background())
	assert.NoError(t, err)
	assert.Len(t, result, 2)
	assert.Equal(t, 1, result[0].Position)
}

func TestGenerateReferralCode_Shape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateReferralCode()
		assert.NoError(t, err)
		assert.True(t, IsValidReferralCode(code), "code %q should be valid", code)
		seen[code] = true
	}
	// Collisions over 100 draws from a 36^8 space would indicate broken randomness.
	assert.Len(t, seen, 100)
}
