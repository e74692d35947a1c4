// Package apperr defines the structured error kinds surfaced by the workflow
// operations. Every domain failure carries a kind and a message; callers
// branch on the kind, transport layers map it to a wire status.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure
type Kind string

const (
	KindNotFound          Kind = "NotFound"
	KindConflict          Kind = "Conflict"
	KindValidationFailed  Kind = "ValidationFailed"
	KindInvalidTransition Kind = "InvalidTransition"
	KindInternal          Kind = "InternalError"
)

// Error is a domain error with a kind and a human-readable message
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any
func (e *Error) Unwrap() error {
	return e.cause
}

// NotFound reports an absent task, document, or template. It is also used when
// an actor targets a task assigned to someone else: reporting NotFound instead
// of a permission error avoids leaking that the task exists.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Conflict reports a lost race or a document/task not in the status the
// operation requires.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// ValidationFailed reports unusable input: a missing rejection reason or a
// template that cannot drive a submission.
func ValidationFailed(message string) *Error {
	return &Error{Kind: KindValidationFailed, Message: message}
}

// InvalidTransition reports an illegal status change. Unreachable when callers
// respect preconditions, but always checked.
func InvalidTransition(cause error) *Error {
	return &Error{Kind: KindInvalidTransition, Message: cause.Error(), cause: cause}
}

// Internal reports a violated persistence invariant, e.g. a document pointing
// at a missing current version.
func Internal(message string) *Error {
	return &Error{Kind: KindInternal, Message: message}
}

// Wrap attaches a cause to a domain error kind.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf returns the kind of err, or KindInternal for non-domain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
