package core

import (
	"strings"

	"github.com/pkg/errors"
)

const RequiredText = "this field is required"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a client error: it is reported back to the caller as a 400.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewRequiredFieldsError reports every listed field as missing.
func NewRequiredFieldsError(fields ...string) error {
	flds := make([]FieldError, 0, len(fields))
	for _, f := range fields {
		flds = append(flds, FieldError{Field: f, Error: RequiredText})
	}
	return &ValidationError{
		Err:    errors.New("missing required fields: " + strings.Join(fields, ", ")),
		Fields: flds,
	}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// IsValidationError reports whether the root cause of err is a *ValidationError.
func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
