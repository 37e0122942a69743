// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package auth

import (
	"errors"
	"fmt"
)

// Kind classifies an authentication or administration failure.
type Kind uint8

const (
	KindInvalidCredentials Kind = iota + 1
	KindAccountLocked
	KindAccountInactive
	KindStoreUnavailable
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindAccountLocked:
		return "account_locked"
	case KindAccountInactive:
		return "account_inactive"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is returned by every Service operation.
type Error struct {
	Kind    Kind
	Message string

	// RemainingMinutes is set for KindAccountLocked, rounded up.
	RemainingMinutes int

	// RemainingAttempts is set for KindInvalidCredentials after a wrong secret
	// for a known identity.
	RemainingAttempts int

	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of message or counters.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid login name or secret"}
	ErrAccountLocked      = &Error{Kind: KindAccountLocked, Message: "account is locked"}
	ErrAccountInactive    = &Error{Kind: KindAccountInactive, Message: "account is inactive"}
	ErrStoreUnavailable   = &Error{Kind: KindStoreUnavailable, Message: "credential store unavailable"}
	ErrValidation         = &Error{Kind: KindValidation, Message: "validation failed"}
)

// KindOf returns the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func invalidCredentials(remaining int) *Error {
	return &Error{Kind: KindInvalidCredentials, Message: ErrInvalidCredentials.Message, RemainingAttempts: remaining}
}

func accountLocked(minutes int) *Error {
	return &Error{
		Kind:             KindAccountLocked,
		Message:          fmt.Sprintf("account is locked, try again in %d minute(s)", minutes),
		RemainingMinutes: minutes,
	}
}

func accountInactive() *Error {
	return &Error{Kind: KindAccountInactive, Message: ErrAccountInactive.Message}
}

func validationError(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: err}
}

// storeError wraps a store failure. Errors that are already *Error pass
// through unchanged.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindStoreUnavailable, Message: ErrStoreUnavailable.Message, Err: err}
}

// errAdministratorRequired is the message for admin-only operations.
const errAdministratorRequired = "administrator required"
