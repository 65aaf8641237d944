// Package apperr defines the error taxonomy shared by services and handlers.
// Services return *Error values; the HTTP layer maps the Kind to a status code.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation_failed"
	default:
		return "internal_error"
	}
}

// Error carries a Kind, a stable machine-readable Code (also the i18n key),
// optional Details (field violations) and the wrapped cause.
type Error struct {
	Kind    Kind
	Code    string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind and, when set, Code.
// errors.Is(err, apperr.ErrNotFound) is true for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Kind-only sentinels for errors.Is checks.
var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrInternal     = &Error{Kind: KindInternal}
)

func Unauthorized(code string) *Error { return &Error{Kind: KindUnauthorized, Code: code} }
func Forbidden(code string) *Error    { return &Error{Kind: KindForbidden, Code: code} }
func NotFound(code string) *Error     { return &Error{Kind: KindNotFound, Code: code} }
func Conflict(code string) *Error     { return &Error{Kind: KindConflict, Code: code} }

// Validation builds a validation error with field details.
func Validation(code string, details any) *Error {
	return &Error{Kind: KindValidation, Code: code, Details: details}
}

// Internal wraps an unexpected failure. The cause is never shown to clients
// outside dev mode.
func Internal(err error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Err: fmt.Errorf(format+": %w", append(args, err)...)}
}

// KindOf returns the Kind of err, KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the *Error from err, wrapping unknown errors as internal ones.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Code: "internal_error", Err: err}
}
