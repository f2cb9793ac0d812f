// Package errors provides coded error types shared by the layout engine,
// the render backends and the HTTP host.
//
// Codes are machine readable so the server can map them to status codes
// without string matching:
//
//	err := errors.New(errors.ErrCodeNotFound, "node %q", id)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // 404
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes.
const (
	// Input contract violations
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidEdge   Code = "INVALID_EDGE"
	ErrCodeDuplicateID   Code = "DUPLICATE_ID"

	// Lookup failures
	ErrCodeNotFound Code = "NOT_FOUND"

	// Lifecycle and interaction errors
	ErrCodeAlreadyDragging Code = "ALREADY_DRAGGING"
	ErrCodeNoSurface       Code = "NO_SURFACE"
	ErrCodeClosed          Code = "CLOSED"

	ErrCodeUnsupported Code = "UNSUPPORTED"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err, or any error joined into it, carries the given code.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if Is(e, code) {
				return true
			}
		}
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Count returns how many errors with the given code are joined into err.
func Count(err error, code Code) int {
	if err == nil {
		return 0
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		n := 0
		for _, e := range joined.Unwrap() {
			n += Count(e, code)
		}
		return n
	}
	if GetCode(err) == code {
		return 1
	}
	return 0
}

// Join is errors.Join, re-exported so callers importing this package do not
// need the standard library one as well.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// UserMessage returns the message without the code prefix for *Error values
// and the plain error string otherwise.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
