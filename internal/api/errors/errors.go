// Package errors defines the JSON error body of the HTTP API.
package errors

import (
	"fmt"
	"net/http"

	apperrors "video-conversion/internal/app/errors"
)

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindInternal   ErrorKind = "internal"
	KindBadRequest ErrorKind = "bad_request"
)

var kindStatus = map[ErrorKind]int{
	KindValidation: http.StatusUnprocessableEntity,
	KindBadRequest: http.StatusBadRequest,
	KindNotFound:   http.StatusNotFound,
	KindConflict:   http.StatusConflict,
	KindInternal:   http.StatusInternalServerError,
}

// APIError is the body of every non-2xx response.
type APIError struct {
	Kind      ErrorKind         `json:"kind"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// HTTPStatus maps the kind to a response code; unknown kinds are 500.
func (e *APIError) HTTPStatus() int {
	if code, ok := kindStatus[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func New(kind ErrorKind, format string, args ...interface{}) *APIError {
	return &APIError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewValidationError reports per-field problems, keyed by JSON field name.
func NewValidationError(message string, fields map[string]string) *APIError {
	e := New(KindValidation, "%s", message)
	e.Details = fields
	return e
}

// NewInternalError hides the cause; callers log it separately.
func NewInternalError() *APIError {
	return New(KindInternal, "Internal server error")
}

// FromDomain translates an engine error into the API error a client should see.
// Errors it does not recognize are returned unchanged.
func FromDomain(err error) error {
	switch {
	case err == nil:
		return nil
	case apperrors.Is(err, apperrors.ErrJobNotFound):
		return New(KindNotFound, "Conversion not found")
	case apperrors.Is(err, apperrors.ErrSubtitleNotFound):
		return New(KindNotFound, "Subtitle job not found")
	case apperrors.Is(err, apperrors.ErrInvalidTransition):
		return New(KindConflict, "%s", err.Error())
	case apperrors.IsValidation(err):
		return NewValidationError("Invalid request", map[string]string{"request": err.Error()})
	}
	return err
}
