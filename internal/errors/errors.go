package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a Formulary error code.
type ErrorCode string

const (
	ErrValidation      ErrorCode = "VALIDATION"        // 400
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"   // 400
	ErrConfiguration   ErrorCode = "CONFIGURATION"     // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"         // 404
	ErrPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE" // 413
	ErrStorage         ErrorCode = "STORAGE"           // 500
	ErrUpstream        ErrorCode = "UPSTREAM"          // 500
	ErrInternal        ErrorCode = "INTERNAL"          // 500
)

// AppError represents a structured error with code, status, and details.
type AppError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidation creates a 400 error naming the missing required fields.
func NewValidation(fields []string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Status:  400,
		Message: fmt.Sprintf("%s required.", joinFields(fields)),
		Details: map[string]any{"fields": fields},
	}
}

// NewInvalidRequest creates a 400 error for malformed request bodies or parameters.
func NewInvalidRequest(msg string) *AppError {
	return &AppError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewConfiguration creates a 400 error for missing server-side configuration.
func NewConfiguration(msg string) *AppError {
	return &AppError{
		Code:    ErrConfiguration,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error.
func NewNotFound(what string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found", what),
		Details: map[string]any{"identifier": what},
	}
}

// NewPayloadTooLarge creates a 413 error when a request body exceeds the limit.
func NewPayloadTooLarge(limit int64) *AppError {
	return &AppError{
		Code:    ErrPayloadTooLarge,
		Status:  413,
		Message: fmt.Sprintf("request body exceeds %d bytes", limit),
		Details: map[string]any{"max_bytes": limit},
	}
}

// NewStorage creates a 500 error wrapping a database failure.
// The driver message is kept for diagnostics.
func NewStorage(err error) *AppError {
	msg := "database error"
	if err != nil {
		msg = "database error: " + err.Error()
	}
	return &AppError{
		Code:    ErrStorage,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// NewUpstream creates a 500 error for a failed call to the AI service.
func NewUpstream(err error) *AppError {
	msg := "upstream error"
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		Code:    ErrUpstream,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *AppError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// As returns err as an *AppError, converting unknown errors to INTERNAL.
func As(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}

// Is checks if an error is an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// joinFields renders ["key", "formula"] as "key and formula".
func joinFields(fields []string) string {
	switch len(fields) {
	case 0:
		return "fields"
	case 1:
		return fields[0] + " is"
	case 2:
		return fields[0] + " and " + fields[1] + " are"
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + " and " + fields[len(fields)-1] + " are"
	}
}
