package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/akeren/raine-waitlist/internal/models"
	apperrors "github.com/akeren/raine-waitlist/pkg/errors"
	"gorm.io/gorm"
)

// WaitlistRepository matches emails exactly. Callers pass the lower-cased email
// produced by EntryValidator, which is also what Insert stores.
type WaitlistRepository interface {
	// FindByEmailAndAppSlug returns (nil, nil) when no entry matches.
	FindByEmailAndAppSlug(ctx context.Context, email, appSlug string) (*models.WaitlistEntry, error)
	// CountByAppSlug counts every entry for an application.
	CountByAppSlug(ctx context.Context, appSlug string) (int64, error)
	// CountByAppSlugSince counts entries created at or after since.
	CountByAppSlugSince(ctx context.Context, appSlug string, since time.Time) (int64, error)
	// Insert persists a new entry; a duplicate (email, app_slug) yields a CONFLICT error.
	Insert(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error)
}

type waitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

func (wr *waitlistRepository) FindByEmailAndAppSlug(ctx context.Context, email, appSlug string) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry

	err := wr.db.WithContext(ctx).
		Where("email = ? AND app_slug = ?", email, appSlug).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("failed to fetch waitlist entry", err)
	}

	return &entry, nil
}

func (wr *waitlistRepository) CountByAppSlug(ctx context.Context, appSlug string) (int64, error) {
	var count int64

	err := wr.db.WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where("app_slug = ?", appSlug).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.NewDatabaseError("unable to count waitlist entries", err)
	}

	return count, nil
}

func (wr *waitlistRepository) CountByAppSlugSince(ctx context.Context, appSlug string, since time.Time) (int64, error) {
	var count int64

	err := wr.db.WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where("app_slug = ? AND created_at >= ?", appSlug, since).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.NewDatabaseError("unable to count recent waitlist entries", err)
	}

	return count, nil
}

func (wr *waitlistRepository) Insert(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	if entry == nil {
		return nil, apperrors.NewInvalidRequestError("waitlist entry cannot be nil", nil)
	}

	if err := wr.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.NewConflictError("waitlist entry with this email already exists", err)
		}
		return nil, apperrors.NewDatabaseError("unable to create waitlist entry", err)
	}

	return entry, nil
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || apperrors.IsDuplicateKeyError(err)
}
