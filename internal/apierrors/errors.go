// Package apierrors defines the service's error taxonomy and maps it onto
// HTTP responses.
package apierrors

import (
	"errors"
	"fmt"
)

// ErrorCode represents application-specific error codes.
type ErrorCode string

const (
	ErrorCodeUnknown        ErrorCode = "UNKNOWN"
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrorCodeInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrorCodeRateLimited    ErrorCode = "RATE_LIMITED"

	// Tenant errors
	ErrorCodeTenantNotFound ErrorCode = "TENANT_NOT_FOUND"
	ErrorCodeTenantExists   ErrorCode = "TENANT_EXISTS"

	// Component errors
	ErrorCodeComponentNotFound ErrorCode = "COMPONENT_NOT_FOUND"
	ErrorCodeComponentExists   ErrorCode = "COMPONENT_EXISTS"

	// Remote registry import errors
	ErrorCodeUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	ErrorCodeUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
)

// ValidationError reports missing or malformed caller input. It is always
// returned to the caller with a human-readable message, never propagated
// past the operation boundary.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation creates a ValidationError.
func Validation(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports that a tenant or component name is already taken.
type ConflictError struct {
	Code    ErrorCode
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// TenantExists creates a ConflictError for a taken tenant name.
func TenantExists(id string) *ConflictError {
	return &ConflictError{
		Code:    ErrorCodeTenantExists,
		Message: fmt.Sprintf("registry name %q is already taken", id),
	}
}

// ComponentExists creates a ConflictError for a taken component name.
func ComponentExists(name string) *ConflictError {
	return &ConflictError{
		Code:    ErrorCodeComponentExists,
		Message: fmt.Sprintf("a component named %q already exists", name),
	}
}

// UpstreamError reports a failed remote registry fetch. Timeout is recorded
// separately from HTTP-level failures so the distinguishing detail survives
// into the message shown to the caller.
type UpstreamError struct {
	URL        string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("fetching %s timed out", e.URL)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetching %s failed with status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetching %s failed: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetching %s failed", e.URL)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
