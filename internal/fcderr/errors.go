// Package fcderr defines the typed failures returned by the change detector.
//
// Every failure carries a stable Code so callers (and tests) can branch on
// the kind of failure without parsing messages. errors.Is matches two
// *Error values by code, and Unwrap exposes the underlying cause.
package fcderr

import (
	"errors"
	"fmt"
)

// Code identifies a failure kind.
type Code string

const (
	Unknown            Code = "UNKNOWN"
	StoreAlreadyExists Code = "STORE_ALREADY_EXISTS"
	StoreNotFound      Code = "STORE_NOT_FOUND"
	StoreCorrupt       Code = "STORE_CORRUPT"
	FileNotFound       Code = "FILE_NOT_FOUND"
	IOError            Code = "IO_ERROR"
	PathAmbiguous      Code = "PATH_AMBIGUOUS"
	ConfigInvalid      Code = "CONFIG_INVALID"
	InvalidInput       Code = "INVALID_INPUT"
)

// Error is a failure with a code, a message and optional details.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Details: map[string]any{}}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and message to err. Returns nil if err is nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	e := New(code, message)
	e.Wrapped = err
	return e
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WithDetail records a key/value pair on the error and returns it.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrStoreAlreadyExists = New(StoreAlreadyExists, "store already exists")
	ErrStoreNotFound      = New(StoreNotFound, "store not found")
	ErrStoreCorrupt       = New(StoreCorrupt, "store is corrupt")
	ErrFileNotFound       = New(FileNotFound, "file not found")
	ErrIO                 = New(IOError, "i/o error")
	ErrPathAmbiguous      = New(PathAmbiguous, "path is ambiguous")
	ErrConfigInvalid      = New(ConfigInvalid, "invalid configuration")
	ErrInvalidInput       = New(InvalidInput, "invalid input")
)

// CodeOf returns the code of the first *Error in err's chain, or Unknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// DetailsOf returns the details of the first *Error in err's chain.
func DetailsOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
