package waitlist

import (
	"time"

	"github.com/akeren/raine-waitlist/internal/models"
)

// SubmitWaitlistRequest is bound from JSON or a form post. Validation runs in the
// service after the rate limit check, so there are no binding tags here.
// AppSlug is never read from the body; the service fills in its configured application.
type SubmitWaitlistRequest struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	AppSlug string `json:"-" form:"-"`
}

// Outcome classifies a submission for status mapping and metrics.
type Outcome string

const (
	OutcomeCreated     Outcome = "created"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeFailed      Outcome = "failed"
)

type SubmissionResult struct {
	Success      bool                `json:"success"`
	Message      string              `json:"message"`
	Position     *int                `json:"position,omitempty"`
	TotalEntries *int64              `json:"total_entries,omitempty"`
	Errors       map[string][]string `json:"errors,omitempty"`

	Outcome    Outcome       `json:"-"`
	RetryAfter time.Duration `json:"-"`
}

type WaitlistStats struct {
	TotalEntries  int64 `json:"total_entries"`
	RecentEntries int64 `json:"recent_entries"`
}

// ========================================
// Mappers
// ========================================

func ToWaitlistEntryModel(entry *ValidatedEntry, position int) *models.WaitlistEntry {
	if entry == nil {
		return nil
	}
	return &models.WaitlistEntry{
		Name:     entry.Name,
		Email:    entry.Email,
		AppSlug:  entry.AppSlug,
		Position: position,
	}
}
