package waitlist

import (
	"strings"

	apperrors "github.com/akeren/raine-waitlist/pkg/errors"
	"github.com/go-playground/validator/v10"
)

const (
	MessageCheckInput   = "Please check your input and try again."
	MessageInvalidEmail = "Please enter a valid email address"
	MessageAppSlug      = "App slug is required"
)

// ValidatedEntry is a normalized submission that passed validation.
type ValidatedEntry struct {
	Name    string
	Email   string
	AppSlug string
}

type EntryValidator interface {
	Validate(req SubmitWaitlistRequest) (*ValidatedEntry, *apperrors.ValidationError)
}

type entryRules struct {
	Name    string `json:"name" validate:"max=255"`
	Email   string `json:"email" validate:"required,email,max=255"`
	AppSlug string `json:"app_slug" validate:"required,max=64"`
}

var fieldMessageOverrides = map[string]string{
	"email.required":    MessageInvalidEmail,
	"email.email":       MessageInvalidEmail,
	"app_slug.required": MessageAppSlug,
}

type entryValidator struct {
	validate *validator.Validate
}

func NewEntryValidator() EntryValidator {
	return &entryValidator{validate: validator.New()}
}

// Validate trims every field and lower-cases the email before checking it.
func (v *entryValidator) Validate(req SubmitWaitlistRequest) (*ValidatedEntry, *apperrors.ValidationError) {
	rules := &entryRules{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		AppSlug: strings.TrimSpace(req.AppSlug),
	}

	if err := v.validate.Struct(rules); err != nil {
		validationErr := apperrors.GroupValidationErrors(err, rules, MessageCheckInput, fieldMessageOverrides)
		if !validationErr.HasErrors() {
			validationErr.Add("form", MessageCheckInput)
		}
		return nil, validationErr
	}

	return &ValidatedEntry{
		Name:    rules.Name,
		Email:   rules.Email,
		AppSlug: rules.AppSlug,
	}, nil
}
