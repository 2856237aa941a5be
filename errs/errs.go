// Package errs defines the domain error kinds shared by every dipcoord
// package. Operations reject invalid actions with typed errors so the HTTP
// layer can map them to statuses without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error kind.
type Code string

const (
	// CodeInvalidState marks operations that are not valid for the current
	// game, phase or member status.
	CodeInvalidState Code = "INVALID_STATE"
	// CodeForbidden marks authorization failures.
	CodeForbidden Code = "FORBIDDEN"
	// CodeNotAMember marks actions attempted by users outside a game.
	CodeNotAMember Code = "NOT_A_MEMBER"
	// CodeNotFound marks references to absent games, phases or members.
	CodeNotFound Code = "NOT_FOUND"
	// CodeAdjudication marks failures reaching or parsing the external
	// adjudicator. Always safe to retry.
	CodeAdjudication Code = "ADJUDICATION_FAILURE"
	// CodeInternal marks everything else.
	CodeInternal Code = "INTERNAL"
)

// Error carries a code, a message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, so sentinel comparisons with errors.Is work
// across wrapping.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func is(err error, code Code) bool {
	return CodeOf(err) == code
}

func IsInvalidState(err error) bool { return is(err, CodeInvalidState) }
func IsForbidden(err error) bool    { return is(err, CodeForbidden) }
func IsNotAMember(err error) bool   { return is(err, CodeNotAMember) }
func IsNotFound(err error) bool     { return is(err, CodeNotFound) }
func IsAdjudication(err error) bool { return is(err, CodeAdjudication) }
