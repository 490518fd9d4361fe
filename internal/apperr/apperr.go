// Package apperr is the typed error taxonomy shared by the engine, the
// registry, and the adapters. Callers branch on Kind, never on error text.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindAlreadyExists   Kind = "already_exists"
	KindInvalidArg      Kind = "invalid_arg"
	KindPayloadTooLarge Kind = "payload_too_large"
	KindLeaseLost       Kind = "lease_lost"
	KindOverload        Kind = "overload"
	KindStorage         Kind = "storage"
	KindBusyTimeout     Kind = "busy_timeout"
)

// Error wraps a Kind and an optional detail/cause, implementing Unwrap so
// errors.As/Is compose normally through the call stack.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

func NotFound(detail string) *Error        { return New(KindNotFound, detail) }
func AlreadyExists(detail string) *Error   { return New(KindAlreadyExists, detail) }
func InvalidArg(detail string) *Error      { return New(KindInvalidArg, detail) }
func PayloadTooLarge(detail string) *Error { return New(KindPayloadTooLarge, detail) }
func LeaseLost(detail string) *Error       { return New(KindLeaseLost, detail) }
func Overload(detail string) *Error        { return New(KindOverload, detail) }
func Storage(detail string, cause error) *Error {
	return Wrap(KindStorage, detail, cause)
}
func BusyTimeout(detail string, cause error) *Error {
	return Wrap(KindBusyTimeout, detail, cause)
}

// Is reports whether err is an *Error with the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// As extracts the *Error from err, if any, following the Unwrap chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
