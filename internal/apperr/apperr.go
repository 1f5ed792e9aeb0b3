// Package apperr defines the tagged failures returned by every service.
//
// Services never substitute zero values for a failed read; they return an *Error whose Kind
// tells the HTTP layer how to answer.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

// Failure kinds.
const (
	KindAuth            Kind = "auth"             // Bad credentials.
	KindNotAdmin        Kind = "not_admin"        // Valid credential without an admin profile.
	KindAccountDisabled Kind = "account_disabled" // Admin profile is inactive.
	KindTwoFactor       Kind = "two_factor"       // Missing or wrong one-time code.
	KindUnauthenticated Kind = "unauthenticated"  // No usable session.
	KindForbidden       Kind = "forbidden"        // Session lacks the permission.
	KindRead            Kind = "read"             // Backing store read failed.
	KindWrite           Kind = "write"            // Backing store write failed.
	KindNotFound        Kind = "not_found"
	KindInvalid         Kind = "invalid"
	KindConflict        Kind = "conflict"
	KindUnavailable     Kind = "unavailable" // Dependency not initialized or timed out.
	KindInternal        Kind = "internal"
)

// Error is a failure tagged with its Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string // Operation name, e.g. "adminauth.LoginAdmin".
	Msg  string // Safe, user-facing message.
	Err  error  // Underlying cause, never shown to clients.
}

// Error implements error.
func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// New returns an Error without an underlying cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap tags err with kind. Context deadline and cancellation errors become KindUnavailable.
func Wrap(kind Kind, op, msg string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = KindUnavailable
		if msg == "" {
			msg = "request timed out"
		}
	}
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindUnavailable
	}
	return KindInternal
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	switch KindOf(err) {
	case KindUnavailable:
		return "service unavailable"
	default:
		return "internal error"
	}
}

// HTTPStatus maps a Kind to the response status used by the admin API.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindAuth, KindUnauthenticated, KindTwoFactor:
		return http.StatusUnauthorized
	case KindNotAdmin, KindAccountDisabled, KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalid:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindRead, KindWrite:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
