// Package errs classifies failures so callers can pick a status code or a
// user message without matching on strings.
package errs

import (
	"errors"
	"strings"
)

// Kind says which part of a search went wrong.
type Kind string

const (
	KindValidation Kind = "validation"
	KindTransport  Kind = "transport"
	KindMalformed  Kind = "malformed"
	KindConflict   Kind = "conflict"
	KindConfig     Kind = "config"
	KindUnknown    Kind = "unknown"
)

// Error pairs a user-facing Message with the operation that failed and the
// underlying cause, which is only ever logged.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

// Error renders "op: message: cause (kind)".
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	b.WriteString(" (")
	b.WriteString(string(e.Kind))
	b.WriteString(")")
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns a typed error with no cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap tags err with kind. An error that already carries a kind is returned as is.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return &Error{Kind: kind, Op: op, Message: message, Cause: err}
}

// KindOf returns the kind of the first typed error in the chain.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing message of a typed error, or err.Error().
func Message(err error) string {
	var target *Error
	if errors.As(err, &target) {
		return target.Message
	}
	return err.Error()
}
