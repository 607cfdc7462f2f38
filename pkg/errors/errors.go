// Package errors defines the coded error type shared by every nodestore
// package.
//
// A [Code] names the failure class (a symlink collision, a failed lifecycle
// script, an unsupported lock file) so callers branch on [Is] instead of on
// message text. Causes stay reachable through the standard errors.Is and
// errors.As helpers.
//
//	if errors.Is(err, errors.ErrCodeSymlinkCollision) {
//	    ...
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a stable, machine-readable failure class.
type Code string

const (
	ErrCodeInvalidSourceLocator Code = "INVALID_SOURCE_LOCATOR"
	ErrCodeInvalidManifest      Code = "INVALID_MANIFEST"
	ErrCodeInvalidInput         Code = "INVALID_INPUT"
	ErrCodeUnsupportedLock      Code = "UNSUPPORTED_LOCK_VERSION"
	ErrCodeSymlinkCollision     Code = "SYMLINK_COLLISION"
	ErrCodeIntegrityMismatch    Code = "INTEGRITY_MISMATCH"
	ErrCodeExtractFailed        Code = "EXTRACT_FAILED"
	ErrCodeInterpreterNotFound  Code = "INTERPRETER_NOT_FOUND"
	ErrCodeScriptFailed         Code = "LIFECYCLE_SCRIPT_FAILURE"
	ErrCodeInternal             Code = "INTERNAL_ERROR"
)

// Error carries a Code, a message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is New with a cause attached.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// CodeOf returns the code of the outermost *Error in err's chain, or "" when
// there is none.
func CodeOf(err error) Code {
	if e, ok := asError(err); ok {
		return e.Code
	}
	return ""
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// UserMessage strips the code prefix and cause from coded errors.
func UserMessage(err error) string {
	if e, ok := asError(err); ok {
		return e.Message
	}
	return err.Error()
}

// Fatal reports whether err must abort an install run. An unsupported lock
// version is the one failure that degrades to a no-op.
func Fatal(err error) bool {
	return err != nil && !Is(err, ErrCodeUnsupportedLock)
}

// ExitCode maps err to a process exit status: 0 for nil, 2 for input the
// installer rejected and 1 for everything else.
func ExitCode(err error) int {
	switch CodeOf(err) {
	case "":
		if err == nil {
			return 0
		}
		return 1
	case ErrCodeInvalidSourceLocator, ErrCodeInvalidManifest, ErrCodeInvalidInput:
		return 2
	default:
		return 1
	}
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
