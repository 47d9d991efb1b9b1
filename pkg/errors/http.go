package errors

import (
	"errors"
	"net/http"
)

const genericMessage = "An unexpected error occurred"

func HTTPStatusCode(err error) int {
	switch GetErrorType(err) {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeInvalidRequest, ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeRateLimited:
		return http.StatusTooManyRequests
	case ErrorTypeRequestTimeout:
		return http.StatusRequestTimeout
	case ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the client-facing text for err. Unclassified errors and
// database failures never leak their cause.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Type == ErrorTypeDatabaseError {
			return genericMessage
		}
		return appErr.Message
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}

	return genericMessage
}
