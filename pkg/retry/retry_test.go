package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func TestExponentialBackoff_RetriesTransientErrors(t *testing.T) {
	var waits []time.Duration
	cfg := fastConfig()
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		waits = append(waits, delay)
	}

	calls := 0
	err := NewExponentialBackoff(cfg).Execute(func() error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestExponentialBackoff_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := NewExponentialBackoff(fastConfig()).Execute(func() error {
		calls++
		return errors.New("password authentication failed")
	})

	assert.Error(t, err)
	assert.False(t, IsMaxRetriesExceeded(err))
	assert.Equal(t, 1, calls)
}

func TestExponentialBackoff_ReportsExhaustion(t *testing.T) {
	cause := errors.New("i/o timeout")
	err := NewExponentialBackoff(fastConfig()).Execute(func() error { return cause })

	assert.True(t, IsMaxRetriesExceeded(err))
	assert.ErrorIs(t, err, cause)
}

func TestCustomRetryable(t *testing.T) {
	cfg := fastConfig()
	cfg.Retryable = func(error) bool { return true }

	calls := 0
	err := NewFixedDelay(cfg).Execute(func() error {
		calls++
		return errors.New("password authentication failed")
	})

	assert.True(t, IsMaxRetriesExceeded(err))
	assert.Equal(t, 3, calls)
}

func TestExecuteContext_CancelledWhileWaiting(t *testing.T) {
	cfg := fastConfig()
	cfg.BaseDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := NewFixedDelay(cfg).ExecuteContext(ctx, func() error {
		return errors.New("connection reset by peer")
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExponentialDelay_IsCapped(t *testing.T) {
	p := NewExponentialBackoff(&Config{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2})

	assert.Equal(t, time.Second, p.delay(1))
	assert.Equal(t, 2*time.Second, p.delay(2))
	assert.Equal(t, 3*time.Second, p.delay(5))
}

func TestNilConfigUsesDefaults(t *testing.T) {
	p := NewFixedDelay(nil)

	assert.Equal(t, 3, p.config.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, p.delay(2))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("ping: %w", errors.New("database is locked"))))
	assert.True(t, IsTransient(errors.New("FATAL: the database system is starting up")))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("syntax error at or near")))
}
