package storage

import "net/http"

// Result carries either a value or the error of an object-store call, together with the
// HTTP status the backend reported. Strict callers Unwrap; tolerant callers use Or.
type Result[T any] struct {
	Value      T
	StatusCode int
	Err        error
}

// Success wraps a value.
func Success[T any](v T) Result[T] {
	return Result[T]{Value: v, StatusCode: http.StatusOK}
}

// Failure wraps an error with the backend status code (0 when unknown).
func Failure[T any](code int, err error) Result[T] {
	return Result[T]{StatusCode: code, Err: err}
}

func (r Result[T]) OK() bool {
	return r.Err == nil
}

func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.Err
}

// Or returns the value, or fallback when the call failed.
func (r Result[T]) Or(fallback T) T {
	if r.Err != nil {
		return fallback
	}
	return r.Value
}
