// Package apperror defines the domain error taxonomy shared by services and
// the HTTP layer. Every Kind maps to one HTTP status; messages are safe to
// return to callers, wrapped causes are not.
package apperror

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFoundOrInvalid
	KindInvalidState
	KindConflict
	KindExpired
	KindUnauthorized
	KindForbidden
	KindRateLimited
	KindUpstream
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFoundOrInvalid:
		return "not_found_or_invalid"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	case KindExpired:
		return "expired"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstream:
		return "upstream"
	case KindConfiguration:
		return "configuration"
	default:
		return "internal"
	}
}

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindInvalidState, KindConflict, KindExpired:
		return http.StatusBadRequest
	case KindNotFoundOrInvalid:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Message string
	// Code is an optional machine-readable code, e.g. for upstream failures.
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may safely retry the same request.
func (e *Error) Retryable() bool {
	return e.Kind == KindUpstream
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func NotFoundOrInvalid(message string) *Error {
	return New(KindNotFoundOrInvalid, message)
}

func InvalidState(message string) *Error {
	return New(KindInvalidState, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func Expired(message string) *Error {
	return New(KindExpired, message)
}

func Unauthorized(err error) *Error {
	return Wrap(KindUnauthorized, "Unauthorized", err)
}

func Forbidden(err error) *Error {
	return Wrap(KindForbidden, "Forbidden", err)
}

func RateLimited() *Error {
	return New(KindRateLimited, "Too Many Requests")
}

func Upstream(message, code string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Code: code, Err: err}
}

func Configuration(message string) *Error {
	return New(KindConfiguration, message)
}

func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// From classifies any error. Unclassified errors become internal errors with a
// generic message.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("Internal Server Error", err)
}

// KindOf returns the Kind of err, or KindInternal when unclassified.
func KindOf(err error) Kind {
	return From(err).Kind
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
