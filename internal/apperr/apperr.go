// Package apperr defines the error kinds services report to handlers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation")
	ErrUpstream   = errors.New("upstream")
)

// Error carries a caller-facing message and unwraps to its kind.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap lets errors.Is match both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error   { return newf(ErrNotFound, format, args...) }
func Forbidden(format string, args ...any) error  { return newf(ErrForbidden, format, args...) }
func Conflict(format string, args ...any) error   { return newf(ErrConflict, format, args...) }
func Validation(format string, args ...any) error { return newf(ErrValidation, format, args...) }

// Upstream wraps a failure of an external collaborator.
func Upstream(err error, format string, args ...any) error {
	return &Error{Kind: ErrUpstream, Message: fmt.Sprintf(format, args...), Err: err}
}

// Code returns the short code reported in API error bodies.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	}
	return "internal"
}

// Message returns the caller-facing text of err, hiding internal causes.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
