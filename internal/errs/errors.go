package errs

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures so callers can decide how to react.
type Kind string

const (
	KindValidation Kind = "validation"
	KindState      Kind = "state"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
)

// Sentinels for errors.Is checks against a Kind.
var (
	ErrValidation = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrState      = &Error{Kind: KindState, Message: "operation not allowed in current state"}
	ErrConflict   = &Error{Kind: KindConflict, Message: "concurrent modification"}
	ErrNotFound   = &Error{Kind: KindNotFound, Message: "not found"}
)

// Error carries a machine readable kind alongside the failing operation.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error of the same Kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return e.Kind == t.Kind
}

func newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or out-of-range input.
func Validation(op, format string, args ...any) *Error {
	return newf(KindValidation, op, format, args...)
}

// State reports an operation against an entity whose state forbids it.
func State(op, format string, args ...any) *Error {
	return newf(KindState, op, format, args...)
}

// Conflict reports a lost race against another writer.
func Conflict(op, format string, args ...any) *Error {
	return newf(KindConflict, op, format, args...)
}

// NotFound reports a missing order, item, delivery, invoice or supplier.
func NotFound(op, format string, args ...any) *Error {
	return newf(KindNotFound, op, format, args...)
}

// Wrap attaches an underlying cause to a typed error.
func Wrap(kind Kind, op string, err error, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
