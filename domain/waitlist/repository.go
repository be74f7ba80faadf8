package waitlist

import (
	"context"
	"errors"

	"github.com/jarfuel/waitlist-api/internal/models"
	apperrors "github.com/jarfuel/waitlist-api/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WaitlistRepository is the single store abstraction for waitlist entries.
// Exactly one implementation is chosen at startup: the gorm-backed remote
// store when a database is configured, otherwise the in-process local store.
// Nothing above this interface branches on which one is active.
type WaitlistRepository interface {
	// InsertEntry persists a new entry, assigning Position atomically as
	// count-before-insert + 1.
	InsertEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error)
	// FindEntryByEmail looks up an entry by its normalized email.
	FindEntryByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error)
	// FindEntryByReferralCode looks up an entry by its referral code.
	FindEntryByReferralCode(ctx context.Context, code string) (*models.WaitlistEntry, error)
	// IncrementReferralCount credits the holder of code and returns the new count.
	IncrementReferralCount(ctx context.Context, code string) (int, error)
	// IncrementShareCount records a share action for code and returns the new count.
	IncrementShareCount(ctx context.Context, code string) (int, error)
	// CountEntries returns the real number of stored entries, without any
	// display offset.
	CountEntries(ctx context.Context) (int64, error)
	// GetAllEntries returns every entry ordered by position.
	GetAllEntries(ctx context.Context) ([]*models.WaitlistEntry, error)
}

// NewWaitlistRepository selects the store implementation once, at startup.
// A nil db means no database is configured and the in-process store is used.
func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	if db == nil {
		return NewLocalWaitlistRepository()
	}
	return NewRemoteWaitlistRepository(db)
}

type remoteWaitlistRepository struct {
	db *gorm.DB
}

func NewRemoteWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &remoteWaitlistRepository{db: db}
}

// insertLockID keys the transaction-scoped advisory lock serializing inserts.
const insertLockID int64 = 0x4A46574C // "JFWL"

func (r *remoteWaitlistRepository) InsertEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Postgres runs READ COMMITTED, so two concurrent inserts would read
		// the same count and assign the same position. The advisory lock
		// serializes the count-then-insert pair; it releases on commit or
		// rollback. SQLite serializes writers at the engine level already.
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", insertLockID).Error; err != nil {
				return apperrors.NewDatabaseError("failed to acquire waitlist insert lock", err)
			}
		}

		var count int64
		if err := tx.Model(&models.WaitlistEntry{}).Count(&count).Error; err != nil {
			return apperrors.NewDatabaseError("failed to count waitlist entries", err)
		}

		entry.Position = int(count) + 1

		if err := tx.Create(entry).Error; err != nil {
			if isDuplicateKey(err) {
				return NewEmailAlreadyJoinedError(err)
			}
			return apperrors.NewDatabaseError("unable to create waitlist entry", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *remoteWaitlistRepository) FindEntryByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry

	if err := r.db.WithContext(ctx).First(&entry, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewEntryNotFoundError()
		}
		return nil, apperrors.NewDatabaseError("failed to fetch waitlist entry", err)
	}

	return &entry, nil
}

func (r *remoteWaitlistRepository) FindEntryByReferralCode(ctx context.Context, code string) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry

	if err := r.db.WithContext(ctx).First(&entry, "referral_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewReferralCodeNotFoundError()
		}
		return nil, apperrors.NewDatabaseError("failed to fetch waitlist entry", err)
	}

	return &entry, nil
}

func (r *remoteWaitlistRepository) IncrementReferralCount(ctx context.Context, code string) (int, error) {
	return r.incrementCounter(ctx, code, "referral_count")
}

func (r *remoteWaitlistRepository) IncrementShareCount(ctx context.Context, code string) (int, error) {
	return r.incrementCounter(ctx, code, "share_count")
}

func (r *remoteWaitlistRepository) incrementCounter(ctx context.Context, code, column string) (int, error) {
	var updated int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.WaitlistEntry

		// FOR UPDATE on PostgreSQL, no-op on SQLite.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("referral_code = ?", code).First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewReferralCodeNotFoundError()
			}
			return apperrors.NewDatabaseError("failed to lock waitlist entry", err)
		}

		switch column {
		case "referral_count":
			updated = entry.ReferralCount + 1
		case "share_count":
			updated = entry.ShareCount + 1
		}

		if err := tx.Model(&entry).Update(column, updated).Error; err != nil {
			return apperrors.NewDatabaseError("failed to update waitlist entry", err)
		}
		return nil
	})

	if err != nil {
		return 0, err
	}
	return updated, nil
}

func (r *remoteWaitlistRepository) CountEntries(ctx context.Context) (int64, error) {
	var count int64

	if err := r.db.WithContext(ctx).Model(&models.WaitlistEntry{}).Count(&count).Error; err != nil {
		return 0, apperrors.NewDatabaseError("failed to count waitlist entries", err)
	}

	return count, nil
}

func (r *remoteWaitlistRepository) GetAllEntries(ctx context.Context) ([]*models.WaitlistEntry, error) {
	var entries []*models.WaitlistEntry

	if err := r.db.WithContext(ctx).Order("position ASC").Find(&entries).Error; err != nil {
		return nil, apperrors.NewDatabaseError("unable to fetch waitlist entries", err)
	}

	return entries, nil
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || apperrors.IsDuplicateKeyError(err)
}
