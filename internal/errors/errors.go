package errors

import (
	"fmt"
)

// YakgwanError is the structured error type for Yakgwan.
// It provides rich context for error handling, logging, and user presentation.
type YakgwanError struct {
	// Code is the unique error code (e.g., "ERR_201_DB_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Upstream, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *YakgwanError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *YakgwanError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with YakgwanError.
func (e *YakgwanError) Is(target error) bool {
	if t, ok := target.(*YakgwanError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *YakgwanError) WithDetail(key, value string) *YakgwanError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new YakgwanError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *YakgwanError {
	return &YakgwanError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a YakgwanError from an existing error.
// The error's message becomes the YakgwanError message.
func Wrap(code string, err error) *YakgwanError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *YakgwanError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StorageError creates a database or cache related error.
func StorageError(message string, cause error) *YakgwanError {
	return New(ErrCodeQueryFailed, message, cause)
}

// UpstreamError creates an error for a failed upstream call.
// Upstream errors are typically retryable.
func UpstreamError(message string, cause error) *YakgwanError {
	return New(ErrCodeLLMUnavailable, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *YakgwanError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *YakgwanError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a YakgwanError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ye, ok := err.(*YakgwanError); ok {
		return ye.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if ye, ok := err.(*YakgwanError); ok {
		return ye.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a YakgwanError.
// Returns empty string if not a YakgwanError.
func GetCode(err error) string {
	if ye, ok := err.(*YakgwanError); ok {
		return ye.Code
	}
	return ""
}
