// Package apperr defines the typed error taxonomy shared by the service
// layer and the HTTP error mapping. Every business failure carries a kind
// and, where applicable, the offending field or identifier; raw internal
// faults are never surfaced to callers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a business failure.
type Kind string

const (
	KindValidation   Kind = "validation"   // malformed or out-of-range input
	KindNotFound     Kind = "not_found"    // missing entity reference
	KindDuplicate    Kind = "duplicate"    // uniqueness violation
	KindConflict     Kind = "conflict"     // state-dependent business-rule violation
	KindExpired      Kind = "expired"      // invitation past its window
	KindAlreadyUsed  Kind = "already_used" // invitation already consumed
	KindPrecondition Kind = "precondition" // operation ordering violated
)

// Error is a typed business error.
type Error struct {
	Kind    Kind   `json:"kind"`
	Field   string `json:"field,omitempty"` // offending field or identifier
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func NotFound(field, message string) *Error {
	return &Error{Kind: KindNotFound, Field: field, Message: message}
}

func Duplicate(field, message string) *Error {
	return &Error{Kind: KindDuplicate, Field: field, Message: message}
}

func Conflict(field, message string) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: message}
}

func Expired(message string) *Error {
	return &Error{Kind: KindExpired, Message: message}
}

func AlreadyUsed(message string) *Error {
	return &Error{Kind: KindAlreadyUsed, Message: message}
}

func Precondition(field, message string) *Error {
	return &Error{Kind: KindPrecondition, Field: field, Message: message}
}

// KindOf extracts the kind from err, or "" if err is not an apperr.Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an apperr.Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
