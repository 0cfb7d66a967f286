// Package errors provides coded error types for socialpatch.
//
// Every failure that ends a run is an AppError: a stable code, a short
// English message and, when a file is involved, its path.
package errors

import (
	"errors"
	"fmt"
)

// AppError is a structured application error with a machine-readable code.
type AppError struct {
	// Code is a machine-readable error code (e.g., "FILE_READ_FAILED").
	Code string

	// Message is a human-readable error message.
	Message string

	// Path is the file the failure relates to, if any.
	Path string

	// Err is the wrapped underlying error.
	Err error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error into an AppError.
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithPath attaches the related file path to the error.
func (e *AppError) WithPath(path string) *AppError {
	if e == nil {
		return e
	}
	e.Path = path
	return e
}

// IsAppError checks if an error is an AppError and returns it.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Code == code
}
