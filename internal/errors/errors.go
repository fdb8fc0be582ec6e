// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. These errors should be used by use cases
// and mapped to appropriate HTTP status codes by handlers.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the destination of a write already exists.
	ErrConflict = errors.New("already exists")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidState indicates the operation is not permitted in the current lifecycle stage or status.
	ErrInvalidState = errors.New("invalid state")

	// ErrIntegrity indicates stored content no longer matches its recorded hash.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrTransmission indicates the hand-off to the transmission collaborator failed or timed out.
	ErrTransmission = errors.New("transmission failed")
)

// Machine-readable error kinds returned by Kind.
const (
	KindValidation    = "validation_error"
	KindInvalidState  = "invalid_state"
	KindNotFound      = "not_found"
	KindAlreadyExists = "already_exists"
	KindIntegrity     = "integrity_error"
	KindTransmission  = "transmission_error"
	KindInternal      = "internal_error"
)

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join is a convenience wrapper around errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Kind returns the machine-readable kind of err. Errors outside the taxonomy
// are reported as KindInternal, nil as an empty string.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindAlreadyExists
	case errors.Is(err, ErrIntegrity):
		return KindIntegrity
	case errors.Is(err, ErrTransmission):
		return KindTransmission
	default:
		return KindInternal
	}
}

// Problem is a single field-level validation failure.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level problems and unwraps to ErrInvalidInput.
type ValidationError struct {
	Problems []Problem
}

// NewValidationError builds a ValidationError from problems.
func NewValidationError(problems ...Problem) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrInvalidInput.Error()
	}
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap makes errors.Is(err, ErrInvalidInput) hold.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Problems extracts field-level problems from err, or nil when err carries none.
func Problems(err error) []Problem {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Problems
	}
	return nil
}
