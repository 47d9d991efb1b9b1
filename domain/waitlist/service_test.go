package waitlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akeren/raine-waitlist/internal/log"
	"github.com/akeren/raine-waitlist/internal/models"
	"github.com/akeren/raine-waitlist/pkg/circuitbreaker"
	apperrors "github.com/akeren/raine-waitlist/pkg/errors"
	"github.com/akeren/raine-waitlist/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type serviceFixture struct {
	repo    *MockWaitlistRepository
	service WaitlistService
	now     *time.Time
	reg     *prometheus.Registry
}

func newServiceFixture(t *testing.T, opts ...ServiceOption) *serviceFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	now := testNow
	clock := func() time.Time { return now }
	reg := prometheus.NewRegistry()

	repo := NewMockWaitlistRepository(ctrl)
	limiter := ratelimit.NewWindowLimiter(ratelimit.WithClock(clock))

	opts = append([]ServiceOption{WithServiceClock(clock), WithMetrics(reg)}, opts...)
	service := NewWaitlistService(log.NewDiscardLogger(), repo, limiter, ServiceConfig{
		DefaultAppSlug:   "raine",
		SubmissionLimit:  5,
		SubmissionWindow: 24 * time.Hour,
	}, opts...)

	return &serviceFixture{repo: repo, service: service, now: &now, reg: reg}
}

func (f *serviceFixture) expectCreate(appSlug string, before int64) {
	f.repo.EXPECT().FindByEmailAndAppSlug(gomock.Any(), gomock.Any(), appSlug).Return(nil, nil)
	f.repo.EXPECT().CountByAppSlug(gomock.Any(), appSlug).Return(before, nil)
	f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
			entry.ID = uint(before) + 1
			return entry, nil
		})
	f.repo.EXPECT().CountByAppSlug(gomock.Any(), appSlug).Return(before+1, nil)
}

func (f *serviceFixture) submissions(t *testing.T, outcome Outcome) float64 {
	t.Helper()

	families, err := f.reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != "waitlist_submissions_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == string(outcome) {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestWaitlistService_Submit_CreatesFirstEntry(t *testing.T) {
	f := newServiceFixture(t)

	f.repo.EXPECT().FindByEmailAndAppSlug(gomock.Any(), "ana@example.com", "raine").Return(nil, nil)
	f.repo.EXPECT().CountByAppSlug(gomock.Any(), "raine").Return(int64(0), nil)
	f.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
			assert.Equal(t, "Ana", entry.Name)
			assert.Equal(t, "ana@example.com", entry.Email)
			assert.Equal(t, "raine", entry.AppSlug)
			assert.Equal(t, 1, entry.Position)
			assert.Equal(t, testNow, entry.CreatedAt)
			entry.ID = 1
			return entry, nil
		})
	f.repo.EXPECT().CountByAppSlug(gomock.Any(), "raine").Return(int64(1), nil)

	result := f.service.Submit(context.Background(), SubmitWaitlistRequest{Name: "Ana", Email: "ana@example.com"}, "10.0.0.1")

	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, OutcomeCreated, result.Outcome)
	require.NotNil(t, result.Position)
	assert.Equal(t, 1, *result.Position)
	require.NotNil(t, result.TotalEntries)
	assert.Equal(t, int64(1), *result.TotalEntries)
	assert.Equal(t, "Welcome to the waitlist! We'll notify you when we launch. (4 submissions remaining today)", result.Message)
	assert.Equal(t, float64(1), f.submissions(t, OutcomeCreated))
}

func TestWaitlistService_Submit_PositionFollowsExistingCount(t *testing.T) {
	f := newServiceFixture(t)
	f.expectCreate("tinker", 41)

	result := f.service.Submit(context.Background(), SubmitWaitlistRequest{Email: "bo@example.com", AppSlug: "tinker"}, "10.0.0.1")

	assert.True(t, result.Success)
	assert.Equal(t, 42, *result.Position)
	assert.Equal(t, int64(42), *result.TotalEntries)
}

func TestWaitlistService_Submit_Duplicate(t *testing.T) {
	f := newServiceFixture(t)

	f.repo.EXPECT().FindByEmailAndAppSlug(gomock.Any(), "ana@example.com", "raine").
		Return(&models.WaitlistEntry{ID: 1, Email: "ana@example.com", AppSlug: "raine", Position: 1}, nil)

	result := f.service.Submit(context.Background(), SubmitWaitlistRequest{Email: "  ANA@example.com "}, "10.0.0.1")

	assert.False(t, result.Success)
	assert.Equal(t, OutcomeDuplicate, result.Outcome)
	assert.Equal(t, MessageDuplicate, result.Message)
	require.NotNil(t, result.Position)
	assert.Equal(t, 1, *result.Position)
	assert.Nil(t, result.TotalEntries)
	assert.Empty(t, result.Errors)
}

func TestWaitlistService_Submit_InvalidEmailNeverTouchesRepository(t *testing.T) {
	f := newServiceFixture(t)

	result := f.service.Submit(context.Background(), SubmitWaitlistRequest{Email: "not-an-email"}, "10.0.0.1")

	assert.False(t, result.Success)
	assert.Equal(t, OutcomeInvalid, result.Outcome)
	assert.Equal(t, MessageCheckInput, result.Message)
	assert.Equal(t, []string{MessageInvalidEmail}, result.Errors["email"])
	assert.Equal(t, float64(1), f.submissions(t, OutcomeInvalid))
}

func TestWaitlistService_Submit_RateLimit(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	// Invalid attempts still count against the window.
	for i := 0; i < 5; i++ {
		result := f.service.Submit(ctx, SubmitWaitlistRequest{Email: "nope"}, "10.0.0.9")
		require.Equal(t, OutcomeInvalid, result.Outcome, "attempt %d", i+1)
	}

	limited := f.service.Submit(ctx, SubmitWaitlistRequest{Email: "ana@example.com"}, "10.0.0.9")
	assert.False(t, limited.Success)
	assert.Equal(t, OutcomeRateLimited, limited.Outcome)
	assert.Equal(t, "Too many waitlist submissions. You can try again after 3/15/2026 at 9:30:00 AM UTC.", limited.Message)
	assert.Equal(t, 24*time.Hour, limited.RetryAfter)

	t.Run("other origins are unaffected", func(t *testing.T) {
		f.expectCreate("raine", 0)
		result := f.service.Submit(ctx, SubmitWaitlistRequest{Email: "ana@example.com"}, "10.0.0.10")
		assert.Equal(t, OutcomeCreated, result.Outcome)
	})

	t.Run("window elapses", func(t *testing.T) {
		*f.now = f.now.Add(24 * time.Hour)
		f.expectCreate("raine", 1)

		result := f.service.Submit(ctx, SubmitWaitlistRequest{Email: "cy@example.com"}, "10.0.0.9")
		assert.Equal(t, OutcomeCreated, result.Outcome)
		assert.Contains(t, result.Message, "(4 submissions remaining today)")
	})
}

func TestWaitlistService_Submit_RepositoryFailures(t *testing.T) {
	dbErr := apperrors.NewDatabaseError("unable to count waitlist entries", errors.New("connection reset by peer"))

	cases := []struct {
		name   string
		expect func(repo *MockWaitlistRepository)
	}{
		{
			name: "lookup fails",
			expect: func(repo *MockWaitlistRepository) {
				repo.EXPECT().FindByEmailAndAppSlug(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, dbErr)
			},
		},
		{
			name: "count fails",
			expect: func(repo *MockWaitlistRepository) {
				repo.EXPECT().FindByEmailAndAppSlug(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
				repo.EXPECT().CountByAppSlug(gomock.Any(), gomock.Any()).Return(int64(0), dbErr)
			},
		},
		{
			name: "insert conflicts",
			expect: func(repo *MockWaitlistRepository) {
				repo.EXPECT().FindByEmailAndAppSlug(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
				repo.EXPECT().CountByAppSlug(gomock.Any(), gomock.Any()).Return(int64(3), nil)
				repo.EXPECT().Insert(gomock.Any(), gomock.Any()).
					Return(nil, apperrors.NewConflictError("waitlist entry with this email already exists", nil))
			},
		},
		{
			name: "recount fails",
			expect: func(repo *MockWaitlistRepository) {
				repo.EXPECT().FindByEmailAndAppSlug(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
				repo.EXPECT().CountByAppSlug(gomock.Any(), gomock.Any()).Return(int64(3), nil)
				repo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
						return entry, nil
					})
				repo.EXPECT().CountByAppSlug(gomock.Any(), gomock.Any()).Return(int64(0), dbErr)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newServiceFixture(t)
			tc.expect(f.repo)

			result := f.service.Submit(context.Background(), SubmitWaitlistRequest{Email: "ana@example.com"}, "10.0.0.1")

			assert.False(t, result.Success)
			assert.Equal(t, OutcomeFailed, result.Outcome)
			assert.Equal(t, MessageFailure, result.Message)
			assert.NotContains(t, result.Message, "connection reset")
			assert.Nil(t, result.Position)
		})
	}
}

func TestWaitlistService_Stats(t *testing.T) {
	t.Run("counts total and last 24 hours", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.EXPECT().CountByAppSlug(gomock.Any(), "raine").Return(int64(10), nil)
		f.repo.EXPECT().CountByAppSlugSince(gomock.Any(), "raine", testNow.Add(-24*time.Hour)).Return(int64(4), nil)

		stats := f.service.Stats(context.Background(), "")

		assert.Equal(t, WaitlistStats{TotalEntries: 10, RecentEntries: 4}, *stats)
	})

	t.Run("unknown app reports zeros", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.EXPECT().CountByAppSlug(gomock.Any(), "nonexistent-app").Return(int64(0), nil)
		f.repo.EXPECT().CountByAppSlugSince(gomock.Any(), "nonexistent-app", gomock.Any()).Return(int64(0), nil)

		assert.Equal(t, WaitlistStats{}, *f.service.Stats(context.Background(), "nonexistent-app"))
	})

	t.Run("failures report zeros", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.EXPECT().CountByAppSlug(gomock.Any(), "raine").Return(int64(0), errors.New("connection refused"))

		assert.Equal(t, WaitlistStats{}, *f.service.Stats(context.Background(), "raine"))
	})

	t.Run("open circuit skips the store", func(t *testing.T) {
		breaker := circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
			FailureThreshold: 1,
			RecoveryTimeout:  time.Hour,
			SuccessThreshold: 1,
		})
		f := newServiceFixture(t, WithCircuitBreaker(breaker))
		f.repo.EXPECT().CountByAppSlug(gomock.Any(), "raine").Return(int64(0), errors.New("connection refused")).Times(1)

		f.service.Stats(context.Background(), "raine")
		stats := f.service.Stats(context.Background(), "raine")

		assert.Equal(t, WaitlistStats{}, *stats)
		assert.Equal(t, circuitbreaker.Open, breaker.State())
	})

	t.Run("default circuit opens after five failures and flags the gauge", func(t *testing.T) {
		f := newServiceFixture(t)
		f.repo.EXPECT().CountByAppSlug(gomock.Any(), "raine").Return(int64(0), errors.New("connection refused")).Times(5)

		for i := 0; i < 6; i++ {
			assert.Equal(t, WaitlistStats{}, *f.service.Stats(context.Background(), "raine"))
		}

		assert.Equal(t, float64(1), f.gauge(t, "waitlist_stats_circuit_open"))
	})
}

func (f *serviceFixture) gauge(t *testing.T, name string) float64 {
	t.Helper()

	families, err := f.reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() == name && len(family.GetMetric()) == 1 {
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return -1
}

type memoryStore struct {
	values map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) { return m.values[key], nil }

func (m *memoryStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.values[key] = value
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func TestWaitlistService_StatsCache(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	f := newServiceFixture(t, WithStatsCache(NewStatsCache(store, time.Minute)))
	ctx := context.Background()

	f.repo.EXPECT().CountByAppSlug(gomock.Any(), "raine").Return(int64(2), nil).Times(1)
	f.repo.EXPECT().CountByAppSlugSince(gomock.Any(), "raine", gomock.Any()).Return(int64(2), nil).Times(1)

	first := f.service.Stats(ctx, "raine")
	second := f.service.Stats(ctx, "raine")
	assert.Equal(t, *first, *second)

	f.expectCreate("raine", 2)
	f.service.Submit(ctx, SubmitWaitlistRequest{Email: "new@example.com"}, "10.0.0.1")
	assert.NotContains(t, store.values, statsCacheKey("raine"))

	f.repo.EXPECT().CountByAppSlug(gomock.Any(), "raine").Return(int64(3), nil)
	f.repo.EXPECT().CountByAppSlugSince(gomock.Any(), "raine", gomock.Any()).Return(int64(3), nil)
	assert.Equal(t, int64(3), f.service.Stats(ctx, "raine").TotalEntries)
}
