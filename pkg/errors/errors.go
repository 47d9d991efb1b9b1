package errors

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ErrorTypeDatabaseError    = "DATABASE_ERROR"
	ErrorTypeNotFound         = "NOT_FOUND"
	ErrorTypeInvalidRequest   = "INVALID_REQUEST"
	ErrorTypeConflict         = "CONFLICT"
	ErrorTypeRateLimited      = "RATE_LIMITED"
	ErrorTypeRequestTimeout   = "REQUEST_TIMEOUT"
	ErrorTypeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrorTypeValidation       = "VALIDATION_ERROR"
	ErrorTypeUnknown          = "UNKNOWN_ERROR"
)

// AppError is a classified failure. Message is safe to show to clients; Err is not.
type AppError struct {
	Type    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(errType, message string, err error) *AppError {
	return &AppError{Type: errType, Message: message, Err: err}
}

func NewInvalidRequestError(message string, err error) *AppError {
	return New(ErrorTypeInvalidRequest, message, err)
}

func NewDatabaseError(message string, err error) *AppError {
	return New(ErrorTypeDatabaseError, message, err)
}

func NewConflictError(message string, err error) *AppError {
	return New(ErrorTypeConflict, message, err)
}

func NewNotFoundError(message string) *AppError {
	return New(ErrorTypeNotFound, message, nil)
}

// GetErrorType returns the classification of err, looking through wrapping.
func GetErrorType(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ErrorTypeValidation
	}

	return ErrorTypeUnknown
}

var duplicateKeyMarkers = []string{
	"duplicate key",
	"unique constraint",
	"sqlstate 23505",
}

// IsDuplicateKeyError recognises unique violations from drivers that do not
// translate them into gorm.ErrDuplicatedKey.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if GetErrorType(err) == ErrorTypeConflict {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range duplicateKeyMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
