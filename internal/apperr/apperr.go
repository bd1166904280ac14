// Package apperr defines the sentinel error categories used across cefrgrade.
//
// Error taxonomy
//
//	UserError    – caused by missing or invalid user input (wrong flag, bad threshold list, …).
//	               The CLI prints only the message; usage help is NOT repeated.
//	               Exit code: 1.
//
//	ErrCancelled – the user deliberately aborted an interactive flow (experiment form, ctrl+c).
//	               Exit code: 0 (not a failure).
//
//	ErrShapeMismatch  – grades, predictions and speaker ids of different length (or empty)
//	                    were handed to a metric or the fold reporter. Caller bug.
//
//	ErrMissingSpeaker – a labelled speaker has no feature row (or the reverse). Callers
//	                    pre-filter to the intersection when that is acceptable.
//
// Everything else is a plain Go error (I/O, decoding, numerics, …) and is
// propagated with fmt.Errorf("context: %w", err) wrapping.
package apperr

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when the user explicitly aborts an interactive
// operation.  The CLI should exit 0 rather than 1 when it sees this error.
var ErrCancelled = errors.New("operation cancelled")

// ErrShapeMismatch reports inputs of unequal or zero length.
var ErrShapeMismatch = errors.New("input length mismatch")

// ErrMissingSpeaker reports a speaker lookup failure between labels and features.
var ErrMissingSpeaker = errors.New("speaker not found")

// UserError represents an error caused by invalid or missing user input.
// Cobra command handlers return this instead of a bare fmt.Errorf so that
// the root command can suppress repeated usage output and format the message
// in a user-friendly way.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

// User creates a UserError with the given message.
func User(msg string) error { return &UserError{Message: msg} }

// Userf creates a formatted UserError.
func Userf(format string, args ...any) error {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

// IsUser reports whether err is (or wraps) a *UserError.
func IsUser(err error) bool {
	var u *UserError
	return errors.As(err, &u)
}

// Shape wraps ErrShapeMismatch with the offending lengths.
func Shape(what string, lengths ...int) error {
	return fmt.Errorf("%s %v: %w", what, lengths, ErrShapeMismatch)
}
