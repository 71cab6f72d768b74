package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeMalformedRow ErrorType = "MALFORMED_ROW"
	ErrTypeIO           ErrorType = "IO"
	ErrTypeSchemaDrift  ErrorType = "SCHEMA_DRIFT"
	ErrTypeValidation   ErrorType = "VALIDATION"
	ErrTypeConfig       ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewNotFoundError creates a not found error for a missing input path
func NewNotFoundError(path string, cause error) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", path), cause).
		WithContext("path", path)
}

// NewMalformedRowError reports a record whose field count disagrees with the header
func NewMalformedRowError(line, got, want int) *AppError {
	return NewAppError(ErrTypeMalformedRow,
		fmt.Sprintf("line %d has %d fields, header has %d", line, got, want), nil).
		WithContext("line", line).
		WithContext("fields", got).
		WithContext("expected_fields", want)
}

// NewIOError creates a write/rename failure error
func NewIOError(message string, cause error) *AppError {
	return NewAppError(ErrTypeIO, message, cause)
}

// NewSchemaDriftError creates an error for a chunk that disagrees with the first chunk's schema
func NewSchemaDriftError(message string) *AppError {
	return NewAppError(ErrTypeSchemaDrift, message, nil)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err wraps an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// IsFatal reports whether an error of this type must abort a run.
// Malformed rows and schema drift are diagnostics unless a policy escalates them.
func IsFatal(err error) bool {
	switch TypeOf(err) {
	case ErrTypeMalformedRow, ErrTypeSchemaDrift:
		return false
	default:
		return err != nil
	}
}
