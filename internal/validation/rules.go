// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/base64"
	"errors"
	"regexp"
	"sort"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/allisson/edibox/internal/edi"
	apperrors "github.com/allisson/edibox/internal/errors"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
)

var (
	// documentTypeRegex accepts X12 numeric codes and EDIFACT message type names.
	documentTypeRegex = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,32}$`)
)

// WrapValidationError converts jellydator validation errors into an apperrors.ValidationError
// carrying one Problem per field. Other errors are wrapped as ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrors validation.Errors
	if !errors.As(err, &fieldErrors) {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}

	fields := make([]string, 0, len(fieldErrors))
	for field := range fieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	problems := make([]apperrors.Problem, 0, len(fields))
	for _, field := range fields {
		problems = append(problems, apperrors.Problem{Field: field, Message: fieldErrors[field].Error()})
	}
	return apperrors.NewValidationError(problems...)
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// SafeFilename rejects display names that could be mistaken for storage paths.
var SafeFilename = validation.NewStringRuleWithError(
	func(s string) bool {
		return !strings.ContainsAny(s, `/\`) && s != "." && s != ".."
	},
	validation.NewError("validation_filename", "must not contain path separators"),
)

// DocumentTypeCode validates an X12 or EDIFACT document type code.
var DocumentTypeCode = validation.NewStringRuleWithError(
	documentTypeRegex.MatchString,
	validation.NewError("validation_document_type", "must be an alphanumeric document type code"),
)

// Stage validates a lifecycle stage name.
var Stage = validation.NewStringRuleWithError(
	func(s string) bool {
		return transactionDomain.Stage(s).Valid()
	},
	validation.NewError("validation_stage", "must be one of intake, accepted, outbox, sent, discarded"),
)

// Format validates a content format name, accepting the A/B dialect aliases.
var Format = validation.NewStringRuleWithError(
	func(s string) bool {
		_, ok := edi.ParseFormat(s)
		return ok
	},
	validation.NewError("validation_format", "must be one of X12, EDIFACT, XML, JSON, CSV, UNKNOWN"),
)

// Base64 validates standard padded base64, the encoding of content_base64 fields.
var Base64 = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := base64.StdEncoding.DecodeString(s)
		return err == nil
	},
	validation.NewError("validation_base64", "must be valid base64-encoded data"),
)
