package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

type CircuitState int

const (
	// Closed lets calls through and counts consecutive failures.
	Closed CircuitState = iota
	// Open rejects calls until the recovery timeout elapses.
	Open
	// HalfOpen lets a single probe through at a time.
	HalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreaker interface {
	Call(fn func() error) error
	State() CircuitState
	Metrics() CircuitBreakerMetrics
	Reset()
}

type Config struct {
	Name             string
	FailureThreshold int           // consecutive failures that open the circuit
	RecoveryTimeout  time.Duration // time spent open before a probe is allowed
	SuccessThreshold int           // probe successes needed to close again

	// IsFailure decides whether an error counts against the circuit. Nil counts every
	// error except context cancellation, which is the caller giving up, not the dependency failing.
	IsFailure func(err error) bool
	// OnStateChange runs after each transition, outside the lock.
	OnStateChange func(name string, from, to CircuitState)
	Now           func() time.Time
}

func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 3,
	}
}

type CircuitBreakerMetrics struct {
	State        CircuitState
	FailureCount int
	SuccessCount int
	Rejected     uint64
	LastFailure  time.Time
	NextAttempt  time.Time
}

type circuitBreaker struct {
	config Config

	mu            sync.Mutex
	state         CircuitState
	failures      int
	successes     int
	probeInFlight bool
	rejected      uint64
	lastFailure   time.Time
	nextAttempt   time.Time
}

func NewCircuitBreaker(config *Config) CircuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &circuitBreaker{config: cfg, state: Closed}
}

type transition struct {
	from, to CircuitState
}

func (cb *circuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	allowed, probe, moved := cb.admit()
	cb.mu.Unlock()
	cb.notify(moved)

	if !allowed {
		return ErrCircuitOpen
	}

	// fn runs without the lock held.
	err := fn()

	cb.mu.Lock()
	if probe {
		cb.probeInFlight = false
	}
	switch {
	case err == nil:
		moved = cb.onSuccess()
	case cb.config.IsFailure(err):
		moved = cb.onFailure()
	default:
		moved = nil
	}
	cb.mu.Unlock()
	cb.notify(moved)

	return err
}

func (cb *circuitBreaker) admit() (allowed, probe bool, moved *transition) {
	if cb.state == Open && !cb.config.Now().Before(cb.nextAttempt) {
		moved = cb.moveTo(HalfOpen)
	}

	switch cb.state {
	case Closed:
		return true, false, moved
	case HalfOpen:
		if cb.probeInFlight {
			cb.rejected++
			return false, false, moved
		}
		cb.probeInFlight = true
		return true, true, moved
	default:
		cb.rejected++
		return false, false, moved
	}
}

func (cb *circuitBreaker) onFailure() *transition {
	now := cb.config.Now()
	cb.failures++
	cb.lastFailure = now

	if cb.state == HalfOpen || (cb.state == Closed && cb.failures >= cb.config.FailureThreshold) {
		cb.nextAttempt = now.Add(cb.config.RecoveryTimeout)
		return cb.moveTo(Open)
	}
	return nil
}

func (cb *circuitBreaker) onSuccess() *transition {
	cb.failures = 0
	if cb.state != HalfOpen {
		return nil
	}

	cb.successes++
	if cb.successes >= cb.config.SuccessThreshold {
		return cb.moveTo(Closed)
	}
	return nil
}

func (cb *circuitBreaker) moveTo(state CircuitState) *transition {
	if cb.state == state {
		return nil
	}
	t := &transition{from: cb.state, to: state}
	cb.state = state
	cb.successes = 0
	return t
}

func (cb *circuitBreaker) notify(t *transition) {
	if t != nil && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, t.from, t.to)
	}
}

func (cb *circuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	moved := cb.moveTo(Closed)
	cb.failures = 0
	cb.probeInFlight = false
	cb.mu.Unlock()
	cb.notify(moved)
}

func (cb *circuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerMetrics{
		State:        cb.state,
		FailureCount: cb.failures,
		SuccessCount: cb.successes,
		Rejected:     cb.rejected,
		LastFailure:  cb.lastFailure,
		NextAttempt:  cb.nextAttempt,
	}
}
