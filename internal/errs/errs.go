// Package errs defines the error taxonomy shared by the ticket engine, the
// coding agent adapters and the judgment gate. Callers branch on these
// types with errors.As; expected negative outcomes (a rejected pause, a
// FAIL verdict) are returned as values and never use this package.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError reports malformed input: an empty field, an unknown
// status, a value in the wrong format.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// Validation creates a ValidationError for the named field.
func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a reference to something that does not exist:
// a ticket, a run, a waiver or an executable.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// NotFound creates a NotFoundError.
func NotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// TimeoutError reports a coding agent subprocess that exceeded its
// wall-clock bound. The process group has been killed by the time this
// error is returned.
type TimeoutError struct {
	Adapter string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: execution timed out after %ds", e.Adapter, int(e.Timeout.Seconds()))
}

// ExecutionError wraps an unexpected subprocess or environment failure.
type ExecutionError struct {
	Adapter string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: execution failed: %v", e.Adapter, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsTimeout reports whether err is or wraps a TimeoutError.
func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}

// IsExecution reports whether err is or wraps an ExecutionError.
func IsExecution(err error) bool {
	var target *ExecutionError
	return errors.As(err, &target)
}
