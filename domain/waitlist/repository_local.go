package waitlist

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jarfuel/waitlist-api/internal/models"
)

// localWaitlistRepository is the in-process fallback store used when no
// database is configured. State lives for the lifetime of the process.
// Position assignment and dedup follow the same rules as the remote store.
type localWaitlistRepository struct {
	mu      sync.RWMutex
	entries []*models.WaitlistEntry
	byEmail map[string]*models.WaitlistEntry
	byCode  map[string]*models.WaitlistEntry
}

func NewLocalWaitlistRepository() WaitlistRepository {
	return &localWaitlistRepository{
		byEmail: make(map[string]*models.WaitlistEntry),
		byCode:  make(map[string]*models.WaitlistEntry),
	}
}

func (r *localWaitlistRepository) InsertEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[entry.Email]; exists {
		return nil, NewEmailAlreadyJoinedError(nil)
	}
	if _, exists := r.byCode[entry.ReferralCode]; exists {
		return nil, NewReferralCodeTakenError(nil)
	}

	stored := *entry
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.Position = len(r.entries) + 1

	r.entries = append(r.entries, &stored)
	r.byEmail[stored.Email] = &stored
	r.byCode[stored.ReferralCode] = &stored

	out := stored
	return &out, nil
}

func (r *localWaitlistRepository) FindEntryByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byEmail[email]
	if !ok {
		return nil, NewEntryNotFoundError()
	}

	out := *entry
	return &out, nil
}

func (r *localWaitlistRepository) FindEntryByReferralCode(ctx context.Context, code string) (*models.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byCode[code]
	if !ok {
		return nil, NewReferralCodeNotFoundError()
	}

	out := *entry
	return &out, nil
}

func (r *localWaitlistRepository) IncrementReferralCount(ctx context.Context, code string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byCode[code]
	if !ok {
		return 0, NewReferralCodeNotFoundError()
	}

	entry.ReferralCount++
	entry.UpdatedAt = time.Now().UTC()
	return entry.ReferralCount, nil
}

func (r *localWaitlistRepository) IncrementShareCount(ctx context.Context, code string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byCode[code]
	if !ok {
		return 0, NewReferralCodeNotFoundError()
	}

	entry.ShareCount++
	entry.UpdatedAt = time.Now().UTC()
	return entry.ShareCount, nil
}

func (r *localWaitlistRepository) CountEntries(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.entries)), nil
}

func (r *localWaitlistRepository) GetAllEntries(ctx context.Context) ([]*models.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.WaitlistEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		copied := *entry
		out = append(out, &copied)
	}

	return out, nil
}
