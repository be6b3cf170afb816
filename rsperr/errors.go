// Package rsperr defines the failure taxonomy for rsp-testgen.
//
// Every error returned by the vector parser, the emitter, the config loader,
// or the CLI maps to exactly one FailureClass, which determines the exit code.
// Incomplete vectors are not failures: the parser drops them silently.
package rsperr

import "fmt"

// FailureClass is a stable failure category.
type FailureClass string

const (
	CLIUsage      FailureClass = "CLI_USAGE"
	InputIO       FailureClass = "INPUT_IO"
	BoundExceeded FailureClass = "BOUND_EXCEEDED"
	ConfigInvalid FailureClass = "CONFIG_INVALID"
	OutputIO      FailureClass = "OUTPUT_IO"
	InternalError FailureClass = "INTERNAL_ERROR"
)

// ExitCode returns the process exit code for this failure class.
func (fc FailureClass) ExitCode() int {
	switch fc {
	case OutputIO, InternalError:
		return 10
	default:
		return 2
	}
}

// Error is the structured error type for all rsp-testgen failures.
type Error struct {
	Class   FailureClass
	Line    int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	if e.Line > 0 {
		return fmt.Sprintf("rsperr: %s at line %d: %s", e.Class, e.Line, msg)
	}
	return fmt.Sprintf("rsperr: %s: %s", e.Class, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given class and message. Pass a line of
// -1 when the failure is not tied to an input line.
func New(class FailureClass, line int, message string) *Error {
	return &Error{Class: class, Line: line, Message: message}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(class FailureClass, line int, message string, cause error) *Error {
	return &Error{Class: class, Line: line, Message: message, Cause: cause}
}
