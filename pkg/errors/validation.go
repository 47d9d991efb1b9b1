package errors

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError carries per-field messages keyed by the JSON field name.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message, Fields: make(map[string][]string)}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", ErrorTypeValidation, e.Message)
	}

	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	return fmt.Sprintf("%s: %s (%s)", ErrorTypeValidation, e.Message, strings.Join(fields, ", "))
}

// Add appends a message for field and returns the receiver for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields[field] = append(e.Fields[field], message)
	return e
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// GroupValidationErrors folds validator errors into a ValidationError keyed by JSON field name.
// overrides replaces the default text for a "field.tag" pair, e.g. "email.email".
// Errors that did not come from the validator produce an empty ValidationError.
func GroupValidationErrors(err error, model any, message string, overrides map[string]string) *ValidationError {
	grouped := NewValidationError(message)

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return grouped
	}

	structType := reflect.TypeOf(model)
	for structType != nil && structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	for _, fe := range fieldErrors {
		field := jsonFieldName(structType, fe.StructField())
		text, ok := overrides[field+"."+fe.Tag()]
		if !ok {
			text = tagMessage(fe.Tag(), fe.Param())
		}
		grouped.Add(field, text)
	}

	return grouped
}

func jsonFieldName(structType reflect.Type, fieldName string) string {
	if structType == nil || structType.Kind() != reflect.Struct {
		return fieldName
	}

	field, found := structType.FieldByName(fieldName)
	if !found {
		return fieldName
	}

	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fieldName
	}
	return name
}

func tagMessage(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "max":
		if param != "" {
			return fmt.Sprintf("Must not exceed %s characters", param)
		}
		return "Value is too long"
	case "min":
		if param != "" {
			return fmt.Sprintf("Must be at least %s characters", param)
		}
		return "Value is too short"
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", param)
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", param)
	default:
		return "Invalid value"
	}
}
