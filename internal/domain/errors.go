package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrMissingField indicates that a source record lacks a required field.
	ErrMissingField = errors.New("missing field")

	// ErrInvalidCredential indicates that the search API rejected the request as a client error.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrTransport indicates that a network or HTTP failure occurred.
	ErrTransport = errors.New("transport error")

	// ErrEmptyInput indicates that there is no text to summarize.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedResponse indicates that the search API returned a body without records.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")
)

// MissingFieldError names the record field that could not be found.
type MissingFieldError struct {
	Field string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record is missing required field %q", e.Field)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// InvalidCredentialError is returned when the search API answers with a 4xx status.
type InvalidCredentialError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *InvalidCredentialError) Error() string {
	return fmt.Sprintf("search API rejected credentials (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *InvalidCredentialError) Unwrap() error {
	return ErrInvalidCredential
}

// TransportError wraps a network or non-success HTTP failure.
type TransportError struct {
	URL        string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	switch {
	case e.Cause != nil && e.StatusCode != 0:
		return fmt.Sprintf("request to %s failed (status %d): %v", e.URL, e.StatusCode, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Cause)
	default:
		return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
	}
}

// Unwrap returns both the sentinel and the cause so errors.Is matches either.
func (e *TransportError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Cause}
}

// EmptyInputError is returned when a summary is requested over empty text.
type EmptyInputError struct {
	Reason string
}

// Error implements the error interface.
func (e *EmptyInputError) Error() string {
	if e.Reason == "" {
		return "nothing to summarize"
	}
	return "nothing to summarize: " + e.Reason
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *EmptyInputError) Unwrap() error {
	return ErrEmptyInput
}

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewMissingFieldError creates a new MissingFieldError.
func NewMissingFieldError(field string) *MissingFieldError {
	return &MissingFieldError{Field: field}
}

// NewInvalidCredentialError creates a new InvalidCredentialError.
func NewInvalidCredentialError(statusCode int, message string) *InvalidCredentialError {
	return &InvalidCredentialError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewTransportError creates a new TransportError.
func NewTransportError(url string, statusCode int, cause error) *TransportError {
	return &TransportError{
		URL:        url,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// NewEmptyInputError creates a new EmptyInputError.
func NewEmptyInputError(reason string) *EmptyInputError {
	return &EmptyInputError{Reason: reason}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
