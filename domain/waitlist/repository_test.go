package waitlist

import (
	"context"
	"testing"
	"time"

	"github.com/akeren/raine-waitlist/internal/models"
	apperrors "github.com/akeren/raine-waitlist/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.ModelRegistry...))
	return db
}

func seedEntry(t *testing.T, db *gorm.DB, email, appSlug string, position int, createdAt time.Time) {
	t.Helper()

	require.NoError(t, db.Create(&models.WaitlistEntry{
		Email:     email,
		AppSlug:   appSlug,
		Position:  position,
		CreatedAt: createdAt,
	}).Error)
}

func TestWaitlistRepository_FindByEmailAndAppSlug(t *testing.T) {
	db := newTestDB(t)
	repo := NewWaitlistRepository(db)
	ctx := context.Background()

	seedEntry(t, db, "ana@example.com", "raine", 1, time.Now())

	found, err := repo.FindByEmailAndAppSlug(ctx, "ana@example.com", "raine")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 1, found.Position)

	missing, err := repo.FindByEmailAndAppSlug(ctx, "ana@example.com", "other-app")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	mixedCase, err := repo.FindByEmailAndAppSlug(ctx, "Ana@Example.com", "raine")
	assert.NoError(t, err)
	assert.Nil(t, mixedCase, "lookups expect the normalized email")
}

func TestWaitlistRepository_Counts(t *testing.T) {
	db := newTestDB(t)
	repo := NewWaitlistRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	seedEntry(t, db, "a@example.com", "raine", 1, now.Add(-48*time.Hour))
	seedEntry(t, db, "b@example.com", "raine", 2, now.Add(-time.Hour))
	seedEntry(t, db, "c@example.com", "raine", 3, now)
	seedEntry(t, db, "a@example.com", "other", 1, now)

	total, err := repo.CountByAppSlug(ctx, "raine")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	recent, err := repo.CountByAppSlugSince(ctx, "raine", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), recent)

	none, err := repo.CountByAppSlug(ctx, "nonexistent-app")
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestWaitlistRepository_Insert(t *testing.T) {
	db := newTestDB(t)
	repo := NewWaitlistRepository(db)
	ctx := context.Background()

	created, err := repo.Insert(ctx, &models.WaitlistEntry{
		Name:     "Ana",
		Email:    "ana@example.com",
		AppSlug:  "raine",
		Position: 1,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	t.Run("duplicate email and app is a conflict", func(t *testing.T) {
		_, err := repo.Insert(ctx, &models.WaitlistEntry{
			Email:    "ana@example.com",
			AppSlug:  "raine",
			Position: 2,
		})

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.GetErrorType(err))
	})

	t.Run("same email on another app is allowed", func(t *testing.T) {
		_, err := repo.Insert(ctx, &models.WaitlistEntry{
			Email:    "ana@example.com",
			AppSlug:  "other",
			Position: 1,
		})

		assert.NoError(t, err)
	})

	t.Run("nil entry", func(t *testing.T) {
		_, err := repo.Insert(ctx, nil)
		assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
	})
}

func TestWaitlistRepository_DatabaseErrors(t *testing.T) {
	db := newTestDB(t)
	repo := NewWaitlistRepository(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = repo.CountByAppSlug(context.Background(), "raine")
	assert.Equal(t, apperrors.ErrorTypeDatabaseError, apperrors.GetErrorType(err))

	_, err = repo.FindByEmailAndAppSlug(context.Background(), "ana@example.com", "raine")
	assert.Equal(t, apperrors.ErrorTypeDatabaseError, apperrors.GetErrorType(err))
}
