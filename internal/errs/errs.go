// Package errs defines the error kinds shared by the services and the HTTP
// boundary.
//
// Every kind is a sentinel (ErrNotFound, ErrInsufficientStock, ...). Concrete
// failures are *Error values whose Unwrap returns the sentinel, so callers
// classify with errors.Is and never compare strings.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUnavailable         = errors.New("product unavailable")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrOwnershipMismatch   = errors.New("ownership mismatch")
	ErrForbiddenTransition = errors.New("forbidden transition")
	ErrAlreadyAssigned     = errors.New("already assigned")
	ErrInvalidState        = errors.New("invalid state")
)

// ErrConcurrentModification is reported when an optimistic version check
// fails. It is an invalid-state failure from the caller's point of view.
var ErrConcurrentModification = fmt.Errorf("%w: concurrent modification", ErrInvalidState)

// Error is a classified failure. Kind is one of the sentinels above.
type Error struct {
	Kind    error
	Message string
	Fields  []string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (cause: %v)", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

func newf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a validation error carrying per-field messages.
func Validation(message string, fields ...string) *Error {
	return &Error{Kind: ErrValidation, Message: message, Fields: fields}
}

func Unauthorized(format string, args ...any) *Error {
	return newf(ErrUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newf(ErrForbidden, format, args...)
}

// NotFound reports a missing entity, e.g. NotFound("product", id).
func NotFound(entity, id string) *Error {
	return newf(ErrNotFound, "%s %s not found", entity, id)
}

func Conflict(format string, args ...any) *Error {
	return newf(ErrConflict, format, args...)
}

func Unavailable(productName string) *Error {
	return newf(ErrUnavailable, "product %s is not available", productName)
}

// InsufficientStock reports a reservation that would drive stock negative.
func InsufficientStock(productName string, requested, available int) *Error {
	return newf(ErrInsufficientStock, "insufficient stock for %s: requested %d, available %d", productName, requested, available)
}

func OwnershipMismatch(format string, args ...any) *Error {
	return newf(ErrOwnershipMismatch, format, args...)
}

func ForbiddenTransition(format string, args ...any) *Error {
	return newf(ErrForbiddenTransition, format, args...)
}

func AlreadyAssigned(orderID string) *Error {
	return newf(ErrAlreadyAssigned, "order %s already has logistics assigned", orderID)
}

func InvalidState(format string, args ...any) *Error {
	return newf(ErrInvalidState, format, args...)
}

// ConcurrentModification reports a lost optimistic-concurrency race on id.
func ConcurrentModification(entity, id string) *Error {
	return &Error{Kind: ErrConcurrentModification, Message: fmt.Sprintf("%s %s was modified concurrently", entity, id)}
}

// Wrap attaches a cause to a kind without losing either.
func Wrap(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// FieldsOf returns the field messages of a validation error, if any.
func FieldsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
