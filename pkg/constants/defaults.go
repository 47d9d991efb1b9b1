package constants

import "time"

// RFC3339DateTimeFormat is used for every timestamp shown to a visitor.
const RFC3339DateTimeFormat = "2006-01-02T15:04:05Z07:00"

// Router defaults, overridable with RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW and REQUEST_TIMEOUT.
const (
	DefaultRateLimitRequests = 100
	DefaultRequestTimeout    = 30 * time.Second
)

func DefaultRateLimitWindow() time.Duration {
	return time.Minute
}

// Waitlist defaults.
const (
	DefaultAppSlug = "raine"

	// DefaultSubmissionLimit is the number of signup attempts one origin may make per window.
	DefaultSubmissionLimit = 5

	DefaultStatsCacheTTL = 30 * time.Second

	// RecentEntriesWindow bounds the "joined recently" statistic.
	RecentEntriesWindow = 24 * time.Hour
)

// DefaultSubmissionWindow is the window over which DefaultSubmissionLimit applies.
func DefaultSubmissionWindow() time.Duration {
	return 24 * time.Hour
}
