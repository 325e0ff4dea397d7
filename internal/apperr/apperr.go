// Package apperr holds the recoverable, user-facing failure taxonomy shared by the
// ledgers and the requisition workflow. Storage faults are never wrapped in an
// *Error; they propagate as plain wrapped errors.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies which invariant an operation violated.
type Kind string

const (
	KindInvalidAmount         Kind = "INVALID_AMOUNT"
	KindInvalidInput          Kind = "INVALID_INPUT"
	KindInvalidTransition     Kind = "INVALID_TRANSITION"
	KindBudgetExceeded        Kind = "BUDGET_EXCEEDED"
	KindInsufficientPettyCash Kind = "INSUFFICIENT_PETTY_CASH"
	KindCapExceeded           Kind = "CAP_EXCEEDED"
	KindAlreadyResolved       Kind = "ALREADY_RESOLVED"
	KindNotFound              Kind = "NOT_FOUND"
)

// Error is a domain rejection. Message names the violated rule and the figures
// an approver needs to act on it.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrBudgetExceeded)
// works regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidAmount         = &Error{Kind: KindInvalidAmount}
	ErrInvalidInput          = &Error{Kind: KindInvalidInput}
	ErrInvalidTransition     = &Error{Kind: KindInvalidTransition}
	ErrBudgetExceeded        = &Error{Kind: KindBudgetExceeded}
	ErrInsufficientPettyCash = &Error{Kind: KindInsufficientPettyCash}
	ErrCapExceeded           = &Error{Kind: KindCapExceeded}
	ErrAlreadyResolved       = &Error{Kind: KindAlreadyResolved}
	ErrNotFound              = &Error{Kind: KindNotFound}
)

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func InvalidAmount(amount int64) *Error {
	return New(KindInvalidAmount, "amount must be non-negative, got %d", amount)
}

func InvalidInput(format string, args ...any) *Error {
	return New(KindInvalidInput, format, args...)
}

func InvalidTransition(entity, from, action string) *Error {
	return New(KindInvalidTransition, "%s in state %s does not allow %s", entity, from, action)
}

func BudgetExceeded(requested, available int64) *Error {
	return New(KindBudgetExceeded, "requested amount %d exceeds available budget of %d", requested, available)
}

func InsufficientPettyCash(requested, available int64) *Error {
	return New(KindInsufficientPettyCash, "requested amount %d exceeds available petty cash of %d", requested, available)
}

func CapExceeded(newAssigned, limit int64) *Error {
	return New(KindCapExceeded, "assigned amount %d would exceed the petty cash cap of %d", newAssigned, limit)
}

func AlreadyResolved(id, status string) *Error {
	return New(KindAlreadyResolved, "escalation request %s is already %s", id, status)
}

func NotFound(entity, key string) *Error {
	return New(KindNotFound, "%s %s not found", entity, key)
}

// KindOf returns the Kind of a domain error, or "" for anything else
// (storage faults included).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
