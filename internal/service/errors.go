package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrExternalService is returned when a call to the language model fails.
	ErrExternalService = errors.New("external service error")
	// ErrUnavailable is returned when the vector index cannot be reached.
	ErrUnavailable = errors.New("vector store unavailable")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

var validate = validator.New()

// validateStruct runs the validator tags on a request payload and converts the
// first failure into a ValidationError.
func validateStruct(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{
			Field:   verrs[0].Field(),
			Message: fmt.Sprintf("failed on the %q rule", verrs[0].Tag()),
		}
	}
	return WrapError(err, "validation failed")
}
