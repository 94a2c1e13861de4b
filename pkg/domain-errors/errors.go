// Package domainerrors carries coded domain errors across service boundaries.
//
// Services return *Error values; transports translate Code to a status with
// httputil.WriteError. Stores return sentinel errors instead, and services
// wrap them here.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of domain failure.
type Code string

const (
	// Request-shape failures.
	CodeMalformedInput Code = "malformed_input"
	CodeValidation     Code = "validation_failed"
	CodeBadRequest     Code = "bad_request"
	CodeInvalidInput   Code = "invalid_input"

	// Gate failures.
	CodeUnauthenticated Code = "unauthenticated"
	CodeRateLimited     Code = "rate_limited"

	// Persistence failures.
	CodeStorage    Code = "storage_failure"
	CodeDerivation Code = "derivation_failure"

	CodeNotFound           Code = "not_found"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error. Fields holds per-field causes for
// validation failures, keyed by dotted path (e.g. "payload.userId").
type Error struct {
	Code       Code
	Message    string
	Err        error
	FormErrors []string
	Fields     map[string][]string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error without an underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a domain code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Validation builds a ValidationFailed error carrying a flattened breakdown.
func Validation(message string, formErrors []string, fields map[string][]string) *Error {
	return &Error{
		Code:       CodeValidation,
		Message:    message,
		FormErrors: formErrors,
		Fields:     fields,
	}
}

// From extracts the first *Error in err's chain.
func From(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err carries the given domain code.
func HasCode(err error, code Code) bool {
	de, ok := From(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for call-site readability in tests.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the domain code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	if de, ok := From(err); ok {
		return de.Code
	}
	return CodeInternal
}
