package ratelimit

import (
	"sync"
	"time"
)

// pruneEvery controls how often Check sweeps expired windows.
const pruneEvery = 256

// Decision is the outcome of a single WindowLimiter check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long until the current window closes, never negative.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if wait := d.ResetAt.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

type windowRecord struct {
	count   int
	resetAt time.Time
}

// WindowLimiter counts attempts per key inside fixed windows that start at the
// first attempt. Every call counts, whether or not the guarded action later succeeds.
//
// State lives in process memory only: a restart clears it and separate
// instances do not share counts.
type WindowLimiter struct {
	mu      sync.Mutex
	records map[string]*windowRecord
	now     func() time.Time
	checks  uint64
}

type WindowOption func(*WindowLimiter)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) WindowOption {
	return func(w *WindowLimiter) {
		if now != nil {
			w.now = now
		}
	}
}

func NewWindowLimiter(opts ...WindowOption) *WindowLimiter {
	w := &WindowLimiter{
		records: make(map[string]*windowRecord),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *WindowLimiter) Check(key string, maxAttempts int, window time.Duration) Decision {
	if key == "" {
		key = "__empty__"
	}

	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.checks++
	if w.checks%pruneEvery == 0 {
		w.pruneLocked(now)
	}

	record, ok := w.records[key]
	if !ok || !now.Before(record.resetAt) {
		record = &windowRecord{count: 1, resetAt: now.Add(window)}
		w.records[key] = record

		return Decision{
			Allowed:   maxAttempts >= 1,
			Remaining: max(maxAttempts-1, 0),
			ResetAt:   record.resetAt,
		}
	}

	record.count++
	if record.count <= maxAttempts {
		return Decision{
			Allowed:   true,
			Remaining: maxAttempts - record.count,
			ResetAt:   record.resetAt,
		}
	}

	return Decision{
		Allowed:   false,
		Remaining: 0,
		ResetAt:   record.resetAt,
	}
}

// Prune drops every record whose window has closed and returns how many were removed.
func (w *WindowLimiter) Prune() int {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	return w.pruneLocked(now)
}

func (w *WindowLimiter) pruneLocked(now time.Time) int {
	removed := 0
	for key, record := range w.records {
		if !now.Before(record.resetAt) {
			delete(w.records, key)
			removed++
		}
	}
	return removed
}

func (w *WindowLimiter) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.records = make(map[string]*windowRecord)
}

// Len reports how many keys currently hold a record, expired or not.
func (w *WindowLimiter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.records)
}
