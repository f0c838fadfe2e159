// Package apperr defines the error taxonomy shared by the auth core and the
// HTTP layer. Every failure that reaches a caller carries a stable Kind that
// handlers can switch on, plus a human-readable Reason. Callers should match
// with errors.Is against the sentinel values below, which compare by Kind.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the machine-distinguishable class of a failure.
type Kind string

const (
	KindTokenExpired        Kind = "token_expired"
	KindTokenInvalid        Kind = "token_invalid"
	KindUnauthenticated     Kind = "unauthenticated"
	KindUserNotFound        Kind = "user_not_found"
	KindForbidden           Kind = "forbidden"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindProviderRejected    Kind = "provider_rejected"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindRoleAlreadySet      Kind = "role_already_set"
	KindInvalidRole         Kind = "invalid_role"
	KindNotFound            Kind = "not_found"
	KindInvalidInput        Kind = "invalid_input"
	KindInternal            Kind = "internal"
)

// Error is a classified failure. Err, when set, is the underlying cause and
// is never shown to clients.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels, one per kind. Reasons are the client-facing messages.
var (
	ErrTokenExpired        = &Error{Kind: KindTokenExpired, Reason: "Token expired"}
	ErrTokenInvalid        = &Error{Kind: KindTokenInvalid, Reason: "Invalid token"}
	ErrUnauthenticated     = &Error{Kind: KindUnauthenticated, Reason: "Not authenticated"}
	ErrUserNotFound        = &Error{Kind: KindUserNotFound, Reason: "User not found"}
	ErrForbidden           = &Error{Kind: KindForbidden, Reason: "Forbidden"}
	ErrInvalidCredentials  = &Error{Kind: KindInvalidCredentials, Reason: "Invalid credentials"}
	ErrProviderRejected    = &Error{Kind: KindProviderRejected, Reason: "Invalid Google token"}
	ErrProviderUnavailable = &Error{Kind: KindProviderUnavailable, Reason: "Identity provider unavailable"}
	ErrRoleAlreadySet      = &Error{Kind: KindRoleAlreadySet, Reason: "Role already set"}
	ErrInvalidRole         = &Error{Kind: KindInvalidRole, Reason: "Invalid role"}
	ErrNotFound            = &Error{Kind: KindNotFound, Reason: "Not found"}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput, Reason: "Invalid input"}
	ErrInternal            = &Error{Kind: KindInternal, Reason: "Internal error"}
)

// New builds an error of the given kind with a specific reason.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap classifies cause under kind, keeping it reachable via errors.Unwrap.
func Wrap(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: cause}
}

// Forbidden returns a Forbidden error carrying the failed predicate's reason.
func Forbidden(reason string) *Error {
	return New(KindForbidden, reason)
}

// KindOf extracts the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf extracts the client-facing reason of err.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ErrInternal.Reason
}
