// Package errors provides structured error types for riskviz.
//
// Every failure the core can produce carries a machine-readable [Code] so that
// the orchestrator, the CLI and the HTTP server can tell a skipped case from an
// infrastructure problem without string matching.
//
// # Error Codes
//
// Core codes mirror the failure taxonomy of the synthesis and layout engine:
//   - INVALID_COUNT: a sample population was requested with count <= 0
//   - INVALID_RANGE: an interval with high < low, or a non-finite input
//   - EMPTY_DOMAIN: a layout domain with min >= max
//   - EMPTY_ATTRIBUTION_SET: a top feature was requested from no records
//   - OUT_OF_DOMAIN: a probability outside [0, 1]
//
// The remaining codes belong to the surfaces around the core (ingestion,
// rendering, HTTP).
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidCount, "count must be positive, got %d", n)
//	if errors.Is(err, errors.ErrCodeInvalidCount) {
//	    // skip the case
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidRecord, origErr, "row %d", row)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Core failures
	ErrCodeInvalidCount        Code = "INVALID_COUNT"
	ErrCodeInvalidRange        Code = "INVALID_RANGE"
	ErrCodeEmptyDomain         Code = "EMPTY_DOMAIN"
	ErrCodeEmptyAttributionSet Code = "EMPTY_ATTRIBUTION_SET"
	ErrCodeOutOfDomain         Code = "OUT_OF_DOMAIN"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidRecord Code = "INVALID_RECORD"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidView   Code = "INVALID_VIEW"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code,
// so a wrapped core failure still matches its original code.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsCore reports whether err carries one of the synthesis/layout/ranking codes,
// i.e. a failure that is scoped to a single case.
func IsCore(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidCount, ErrCodeInvalidRange, ErrCodeEmptyDomain,
		ErrCodeEmptyAttributionSet, ErrCodeOutOfDomain:
		return true
	}
	return false
}
