package errors

import (
	"fmt"
)

// AppError represents a structured adapter-layer error with a stable
// code for API responses and logs. Domain errors stay sentinel-based in
// domain/core; this wrapper is for the boundary.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{Code: appErr.Code, Message: message, Cause: appErr}
	}
	return &AppError{Code: "INTERNAL_ERROR", Message: message, Cause: err}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{Code: code, Message: appErr.Message, Cause: appErr.Cause}
	}
	return &AppError{Code: code, Message: err.Error(), Cause: err}
}

// Common error codes
const (
	CodeBadInput   = "BAD_INPUT"
	CodeNotFound   = "NOT_FOUND"
	CodeConfig     = "CONFIG_ERROR"
	CodeStorage    = "STORAGE_ERROR"
	CodeSource     = "SOURCE_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
	CodeRunFailure = "RUN_FAILURE"
)
