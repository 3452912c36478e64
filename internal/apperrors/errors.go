// Package apperrors defines the typed errors shared by the repositories,
// services and HTTP handlers.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to react to it (HTTP status
// mapping, retry decisions).
type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindExpired      Kind = "expired"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindUnavailable  Kind = "unavailable"
	KindInternal     Kind = "internal"
)

// Error is the application error type. Code is a stable machine readable
// reason, Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind and Code so that a wrapped copy of a sentinel still
// matches the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

var (
	ErrRaceNotFound        = &Error{Kind: KindNotFound, Code: "RACE_NOT_FOUND", Message: "race not found"}
	ErrParticipantNotFound = &Error{Kind: KindNotFound, Code: "PARTICIPANT_NOT_FOUND", Message: "user has no activity in this race"}
	ErrPrizeNotFound       = &Error{Kind: KindNotFound, Code: "PRIZE_NOT_FOUND", Message: "prize not found"}

	ErrRaceNotActive       = &Error{Kind: KindConflict, Code: "RACE_NOT_ACTIVE", Message: "race is not accepting activity"}
	ErrRaceNotEnded        = &Error{Kind: KindConflict, Code: "RACE_NOT_ENDED", Message: "race window has not closed yet"}
	ErrRaceNotSettled      = &Error{Kind: KindConflict, Code: "RACE_NOT_SETTLED", Message: "race has not been settled"}
	ErrRaceExists          = &Error{Kind: KindConflict, Code: "RACE_EXISTS", Message: "race already exists"}
	ErrAlreadySettled      = &Error{Kind: KindConflict, Code: "ALREADY_SETTLED", Message: "race already settled"}
	ErrPrizeAlreadyClaimed = &Error{Kind: KindConflict, Code: "ALREADY_CLAIMED", Message: "prize already claimed"}

	ErrPrizeExpired = &Error{Kind: KindExpired, Code: "PRIZE_EXPIRED", Message: "prize claim window has passed"}

	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Code: "INVALID_CREDENTIALS", Message: "invalid credentials"}

	ErrMultiplierConfigUnavailable = &Error{Kind: KindInternal, Code: "MULTIPLIER_CONFIG_UNAVAILABLE", Message: "multiplier configuration unavailable"}
)

// Validation returns a validation error with the given message.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_FAILED", Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps a storage failure. These are retryable by the caller.
func Unavailable(op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Code: "STORAGE_UNAVAILABLE", Message: op + " failed", Err: err}
}

// Wrap returns a copy of sentinel carrying err as its cause.
func Wrap(sentinel *Error, err error) *Error {
	cp := *sentinel
	cp.Err = err
	return &cp
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the Code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL"
}

// MessageOf returns the client-safe message of the first *Error in err's chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
