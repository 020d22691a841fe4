// Package apperr defines the error taxonomy shared by services and the HTTP
// layer. Every user-visible failure carries a Kind and a short message so the
// transport can map it to a status code without inspecting error strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for transport mapping.
type Kind int

const (
	// KindUnknown covers unexpected internal failures.
	KindUnknown Kind = iota
	// KindValidation marks bad or missing caller input.
	KindValidation
	// KindNotFound marks an absent resource or account.
	KindNotFound
	// KindForbidden marks an authenticated caller that does not own the resource.
	KindForbidden
	// KindConflict marks a duplicate handle or email.
	KindConflict
	// KindAuth marks a missing, expired, or malformed credential.
	KindAuth
	// KindProfileNotFound marks a verified identity with no local account.
	KindProfileNotFound
	// KindUpstream marks an identity-provider or media-store failure.
	KindUpstream
)

// Error is the structured error type propagated out of services.
type Error struct {
	kind    Kind
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Kind exposes the taxonomy classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// Message exposes the user-facing text without internal cause detail.
func (e *Error) Message() string {
	return e.message
}

// New constructs a classified error with a user-facing message.
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Wrap constructs a classified error retaining the underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

// Validation builds a KindValidation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// NotFound builds a KindNotFound error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Forbidden builds a KindForbidden error.
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// Conflict builds a KindConflict error.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// KindOf extracts the Kind from any error in the chain, defaulting to KindUnknown.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.kind
	}
	return KindUnknown
}

// MessageOf extracts the user-facing message, falling back to a generic one.
func MessageOf(err error) string {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.message
	}
	return "internal server error"
}
