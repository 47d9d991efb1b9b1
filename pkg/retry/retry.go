package retry

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
)

// Retrier runs fn until it succeeds, fails permanently or runs out of attempts.
type Retrier interface {
	Execute(fn func() error) error
	ExecuteContext(ctx context.Context, fn func() error) error
}

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64

	// Retryable reports whether err deserves another attempt. Nil means IsTransient.
	Retryable func(err error) bool
	// OnRetry is called before each wait with the attempt that just failed.
	OnRetry func(attempt int, delay time.Duration, err error)
}

func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	}
}

// Policy is a Retrier with a pluggable delay schedule.
type Policy struct {
	config Config
	delay  func(attempt int) time.Duration
}

func newPolicy(config *Config, delay func(Config, int) time.Duration) *Policy {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Retryable == nil {
		cfg.Retryable = IsTransient
	}
	return &Policy{
		config: cfg,
		delay:  func(attempt int) time.Duration { return delay(cfg, attempt) },
	}
}

// NewExponentialBackoff waits BaseDelay * Multiplier^(attempt-1), capped at MaxDelay.
func NewExponentialBackoff(config *Config) *Policy {
	return newPolicy(config, func(cfg Config, attempt int) time.Duration {
		d := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
		if cfg.MaxDelay > 0 && d > float64(cfg.MaxDelay) {
			return cfg.MaxDelay
		}
		return time.Duration(d)
	})
}

// NewFixedDelay waits BaseDelay between attempts.
func NewFixedDelay(config *Config) *Policy {
	return newPolicy(config, func(cfg Config, _ int) time.Duration {
		return cfg.BaseDelay
	})
}

func (p *Policy) Execute(fn func() error) error {
	return p.ExecuteContext(context.Background(), fn)
}

// ExecuteContext stops waiting between attempts as soon as ctx is done.
func (p *Policy) ExecuteContext(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if attempt == p.config.MaxAttempts {
			break
		}
		if !p.config.Retryable(lastErr) {
			return lastErr
		}

		delay := p.delay(attempt)
		if p.config.OnRetry != nil {
			p.config.OnRetry(attempt, delay, lastErr)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return &MaxRetriesExceededError{LastError: lastErr, MaxAttempts: p.config.MaxAttempts}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"timeout",
	"temporary failure",
	"service unavailable",
	"too many requests",
	"too many connections",
	"the database system is starting up",
	"database is locked",
	"no such host",
}

// IsTransient matches errors that usually clear up on their own: network blips,
// a database still starting, SQLite writer contention.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

type MaxRetriesExceededError struct {
	LastError   error
	MaxAttempts int
}

func (e *MaxRetriesExceededError) Error() string {
	return "max retries exceeded"
}

func (e *MaxRetriesExceededError) Unwrap() error {
	return e.LastError
}

func IsMaxRetriesExceeded(err error) bool {
	var maxRetriesErr *MaxRetriesExceededError
	return errors.As(err, &maxRetriesErr)
}
