package errors

import (
	"fmt"
)

// SearchError is the structured error type for casefind.
// It provides context for error handling, logging, and user presentation.
type SearchError struct {
	// Code is the unique error code (e.g., "ERR_301_SOURCE_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Upstream, etc.).
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
func (e *SearchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SearchError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with SearchError.
func (e *SearchError) Is(target error) bool {
	if t, ok := target.(*SearchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *SearchError) WithDetail(key, value string) *SearchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new SearchError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SearchError {
	return &SearchError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SearchError from an existing error.
// The error's message becomes the SearchError message.
func Wrap(code string, err error) *SearchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *SearchError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *SearchError {
	return New(ErrCodeInvalidInput, message, cause)
}

// SourceError creates an upstream source failure.
// Source errors are retryable: the next request may find the source healthy.
func SourceError(message string, cause error) *SearchError {
	return New(ErrCodeSourceUnavailable, message, cause)
}

// FusionError creates an error for a failed fusion pass.
func FusionError(message string, cause error) *SearchError {
	return New(ErrCodeFusionFailed, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a SearchError with Retryable flag set.
func IsRetryable(err error) bool {
	if se, ok := err.(*SearchError); ok {
		return se.Retryable
	}
	return false
}

// CodeOf returns the error code of a SearchError, or ErrCodeInternal for
// any other error type.
func CodeOf(err error) string {
	if se, ok := err.(*SearchError); ok {
		return se.Code
	}
	return ErrCodeInternal
}
