package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the module.
type ErrorCode string

// Caller-visible error codes. These are the only codes Generate returns.
const (
	ErrInvalidInput            ErrorCode = "INVALID_INPUT"
	ErrCancelled               ErrorCode = "CANCELLED"
	ErrAllProvidersUnavailable ErrorCode = "ALL_PROVIDERS_UNAVAILABLE"
)

// Per-attempt error codes. They drive the provider chain and end up in logs
// and metrics, never in front of the caller.
const (
	ErrProviderFailure ErrorCode = "PROVIDER_FAILURE"
	ErrUnknownStyle    ErrorCode = "UNKNOWN_STYLE"
	ErrInvalidSize     ErrorCode = "INVALID_SIZE"
	ErrUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	ErrNotAnImage      ErrorCode = "NOT_AN_IMAGE"
	ErrNoImageURL      ErrorCode = "NO_IMAGE_URL"
	ErrImageLoadFailed ErrorCode = "IMAGE_LOAD_FAILED"
	ErrCircuitOpen     ErrorCode = "CIRCUIT_OPEN"
)

// Service error codes
const (
	ErrNotFound         ErrorCode = "NOT_FOUND"
	ErrMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	ErrUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrRateLimited      ErrorCode = "RATE_LIMITED"
	ErrInternalError    ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the outermost error code from an error chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether any *Error in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
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
