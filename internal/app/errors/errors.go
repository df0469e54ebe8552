package errors

import (
	"errors"
	"fmt"
)

// Common error types
var (
	// Configuration errors
	ErrMissingConfig  = New("configuration is required")
	ErrInvalidConfig  = New("invalid configuration")
	ErrUnknownBackend = New("unknown backend")

	// ErrValidation matches every error built by RequiredField and InvalidField.
	ErrValidation = &Error{message: "validation failed", validation: true}

	// Record store errors
	ErrDuplicateKey      = New("duplicate key")
	ErrJobNotFound       = New("conversion job not found")
	ErrSubtitleNotFound  = New("subtitle job not found")
	ErrInvalidTransition = New("invalid status transition")
	ErrQueryFailed       = New("query failed")
	ErrInsertFailed      = New("insert failed")
	ErrUpdateFailed      = New("update failed")

	// File errors
	ErrFileNotFound = New("file not found")

	// Object store and channel errors
	ErrObjectNotFound   = New("object not found")
	ErrRequestFailed    = New("request failed")
	ErrResponseInvalid  = New("invalid response")
	ErrMessageMalformed = New("malformed message")
)

// Error carries a message and an optional cause.
type Error struct {
	message    string
	cause      error
	validation bool
}

// New creates a new error
func New(message string) *Error {
	return &Error{message: message}
}

// Newf creates a new formatted error
func Newf(format string, args ...interface{}) *Error {
	return &Error{message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		message: message,
		cause:   err,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{
		message: fmt.Sprintf(format, args...),
		cause:   err,
	}
}

// Mark attaches a sentinel to err so that errors.Is matches both.
func Mark(err error, sentinel *Error) error {
	if err == nil {
		return nil
	}
	return &Error{
		message: sentinel.message,
		cause:   err,
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is checks if the error matches target
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == ErrValidation {
		return e.validation
	}
	return e.message == t.message
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// RequiredField returns an error for missing required fields
func RequiredField(field string) error {
	return &Error{message: field + " is required", validation: true}
}

// InvalidField returns an error for invalid field values
func InvalidField(field string, reason string) error {
	return &Error{message: fmt.Sprintf("%s is invalid: %s", field, reason), validation: true}
}

// IsValidation reports whether err was caused by bad caller input.
func IsValidation(err error) bool {
	return Is(err, ErrValidation)
}

// NotFound returns an error for items that were not found
func NotFound(itemType string, identifier string) error {
	return Newf("%s not found: %s", itemType, identifier)
}

// IsDuplicate reports whether err signals a unique-constraint violation.
func IsDuplicate(err error) bool {
	return Is(err, ErrDuplicateKey)
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return Is(err, ErrJobNotFound) || Is(err, ErrSubtitleNotFound) ||
		Is(err, ErrObjectNotFound) || Is(err, ErrFileNotFound)
}
