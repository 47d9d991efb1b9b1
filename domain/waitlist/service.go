package waitlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akeren/raine-waitlist/internal/log"
	"github.com/akeren/raine-waitlist/pkg/circuitbreaker"
	"github.com/akeren/raine-waitlist/pkg/constants"
	apperrors "github.com/akeren/raine-waitlist/pkg/errors"
	"github.com/akeren/raine-waitlist/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	MessageDuplicate = "You're already on the waitlist! We'll notify you when we launch."
	MessageFailure   = "Something went wrong. Please try again later."
)

const tracerName = "github.com/akeren/raine-waitlist/domain/waitlist"

type WaitlistService interface {
	// Submit runs one signup attempt from clientOrigin. It never returns nil; failures are
	// reported through the result so the caller can render them as-is.
	Submit(ctx context.Context, req SubmitWaitlistRequest, clientOrigin string) *SubmissionResult

	// Stats returns totals for appSlug, or zeros when the store cannot answer.
	Stats(ctx context.Context, appSlug string) *WaitlistStats
}

type ServiceConfig struct {
	DefaultAppSlug   string
	SubmissionLimit  int
	SubmissionWindow time.Duration
}

func (cfg *ServiceConfig) applyDefaults() {
	if strings.TrimSpace(cfg.DefaultAppSlug) == "" {
		cfg.DefaultAppSlug = constants.DefaultAppSlug
	}
	if cfg.SubmissionLimit <= 0 {
		cfg.SubmissionLimit = constants.DefaultSubmissionLimit
	}
	if cfg.SubmissionWindow <= 0 {
		cfg.SubmissionWindow = constants.DefaultSubmissionWindow()
	}
}

type ServiceOption func(*waitlistService)

func WithStatsCache(cache StatsCache) ServiceOption {
	return func(s *waitlistService) {
		if cache != nil {
			s.statsCache = cache
		}
	}
}

func WithCircuitBreaker(cb circuitbreaker.CircuitBreaker) ServiceOption {
	return func(s *waitlistService) {
		if cb != nil {
			s.statsBreaker = cb
		}
	}
}

// WithMetrics counts submissions by outcome on reg.
func WithMetrics(reg prometheus.Registerer) ServiceOption {
	return func(s *waitlistService) {
		s.metrics = newSubmissionMetrics(reg)
	}
}

func WithValidator(v EntryValidator) ServiceOption {
	return func(s *waitlistService) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithServiceClock overrides the clock used for timestamps and the recent-entries window.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *waitlistService) {
		if now != nil {
			s.now = now
		}
	}
}

type waitlistService struct {
	logger       *log.Logger
	repository   WaitlistRepository
	limiter      *ratelimit.WindowLimiter
	validator    EntryValidator
	statsCache   StatsCache
	statsBreaker circuitbreaker.CircuitBreaker
	metrics      *submissionMetrics
	config       ServiceConfig
	now          func() time.Time
	tracer       trace.Tracer
}

func NewWaitlistService(
	logger *log.Logger,
	repository WaitlistRepository,
	limiter *ratelimit.WindowLimiter,
	config ServiceConfig,
	opts ...ServiceOption,
) WaitlistService {
	config.applyDefaults()

	if limiter == nil {
		limiter = ratelimit.NewWindowLimiter()
	}

	s := &waitlistService{
		logger:     logger,
		repository: repository,
		limiter:    limiter,
		validator:  NewEntryValidator(),
		statsCache: noopStatsCache{},
		config:     config,
		now:        time.Now,
		tracer:     otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.statsBreaker == nil {
		s.statsBreaker = circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{
			Name:             "waitlist-stats",
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
			SuccessThreshold: 1,
			OnStateChange:    s.onStatsCircuitChange,
		})
	}

	return s
}

func (s *waitlistService) onStatsCircuitChange(name string, from, to circuitbreaker.CircuitState) {
	s.logger.Warn("Stats circuit changed state", "circuit", name, "from", from.String(), "to", to.String())
	s.metrics.circuitState(to)
}

func (s *waitlistService) Submit(ctx context.Context, req SubmitWaitlistRequest, clientOrigin string) *SubmissionResult {
	ctx, span := s.tracer.Start(ctx, "waitlist.Submit")
	defer span.End()

	result := s.submit(ctx, req, clientOrigin)

	span.SetAttributes(attribute.String("waitlist.outcome", string(result.Outcome)))
	if result.Outcome == OutcomeFailed {
		span.SetStatus(codes.Error, "submission failed")
	}
	s.metrics.observe(result.Outcome)

	return result
}

func (s *waitlistService) submit(ctx context.Context, req SubmitWaitlistRequest, clientOrigin string) *SubmissionResult {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)
	now := s.now()

	decision := s.limiter.Check(clientOrigin, s.config.SubmissionLimit, s.config.SubmissionWindow)
	if !decision.Allowed {
		logger.Warn("Waitlist submission rate limited",
			"client_origin", clientOrigin,
			"reset_at", decision.ResetAt.UTC().Format(constants.RFC3339DateTimeFormat),
		)
		return &SubmissionResult{
			Success:    false,
			Message:    rateLimitedMessage(decision.ResetAt),
			Outcome:    OutcomeRateLimited,
			RetryAfter: decision.RetryAfter(now),
		}
	}

	if strings.TrimSpace(req.AppSlug) == "" {
		req.AppSlug = s.config.DefaultAppSlug
	}

	entry, validationErr := s.validator.Validate(req)
	if validationErr != nil {
		logger.Info("Waitlist submission failed validation", "error", validationErr.Error())
		return &SubmissionResult{
			Success: false,
			Message: MessageCheckInput,
			Errors:  validationErr.Fields,
			Outcome: OutcomeInvalid,
		}
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("waitlist.app_slug", entry.AppSlug))

	existing, err := s.repository.FindByEmailAndAppSlug(ctx, entry.Email, entry.AppSlug)
	if err != nil {
		return s.failure(ctx, logger, "Failed to look up waitlist entry", err)
	}
	if existing != nil {
		logger.Info("Waitlist submission already registered", "app_slug", entry.AppSlug, "position", existing.Position)
		position := existing.Position
		return &SubmissionResult{
			Success:  false,
			Message:  MessageDuplicate,
			Position: &position,
			Outcome:  OutcomeDuplicate,
		}
	}

	count, err := s.repository.CountByAppSlug(ctx, entry.AppSlug)
	if err != nil {
		return s.failure(ctx, logger, "Failed to count waitlist entries", err)
	}

	model := ToWaitlistEntryModel(entry, int(count)+1)
	model.CreatedAt = now.UTC()

	created, err := s.repository.Insert(ctx, model)
	if err != nil {
		return s.failure(ctx, logger, "Failed to insert waitlist entry", err)
	}

	s.statsCache.Invalidate(ctx, entry.AppSlug)

	total, err := s.repository.CountByAppSlug(ctx, entry.AppSlug)
	if err != nil {
		return s.failure(ctx, logger, "Failed to recount waitlist entries", err)
	}

	logger.Info("Waitlist entry created",
		"app_slug", created.AppSlug,
		"position", created.Position,
		"total_entries", total,
	)

	position := created.Position
	return &SubmissionResult{
		Success:      true,
		Message:      fmt.Sprintf("Welcome to the waitlist! We'll notify you when we launch. (%d submissions remaining today)", decision.Remaining),
		Position:     &position,
		TotalEntries: &total,
		Outcome:      OutcomeCreated,
	}
}

func (s *waitlistService) failure(ctx context.Context, logger *log.Logger, msg string, err error) *SubmissionResult {
	logger.Error(msg, "error", err, "error_type", apperrors.GetErrorType(err))
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)

	return &SubmissionResult{
		Success: false,
		Message: MessageFailure,
		Outcome: OutcomeFailed,
	}
}

func (s *waitlistService) Stats(ctx context.Context, appSlug string) *WaitlistStats {
	ctx, span := s.tracer.Start(ctx, "waitlist.Stats")
	defer span.End()

	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	appSlug = strings.TrimSpace(appSlug)
	if appSlug == "" {
		appSlug = s.config.DefaultAppSlug
	}
	span.SetAttributes(attribute.String("waitlist.app_slug", appSlug))

	if cached, ok := s.statsCache.Get(ctx, appSlug); ok {
		span.SetAttributes(attribute.Bool("waitlist.stats_cached", true))
		return cached
	}

	stats := &WaitlistStats{}
	err := s.statsBreaker.Call(func() error {
		total, err := s.repository.CountByAppSlug(ctx, appSlug)
		if err != nil {
			return err
		}

		recent, err := s.repository.CountByAppSlugSince(ctx, appSlug, s.now().UTC().Add(-constants.RecentEntriesWindow))
		if err != nil {
			return err
		}

		stats.TotalEntries = total
		stats.RecentEntries = recent
		return nil
	})
	if err != nil {
		logger.Warn("Waitlist stats unavailable; reporting zeros",
			"app_slug", appSlug,
			"error", err,
			"circuit", s.statsBreaker.State().String(),
		)
		span.RecordError(err)
		return &WaitlistStats{}
	}

	s.statsCache.Set(ctx, appSlug, stats)
	return stats
}

func rateLimitedMessage(resetAt time.Time) string {
	reset := resetAt.UTC()
	return fmt.Sprintf(
		"Too many waitlist submissions. You can try again after %s at %s.",
		reset.Format("1/2/2006"),
		reset.Format("3:04:05 PM MST"),
	)
}
