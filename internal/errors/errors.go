package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a bssh error code.
type ErrorCode string

const (
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"       // 400
	ErrNotFound             ErrorCode = "NOT_FOUND"             // 404
	ErrFileNotFound         ErrorCode = "FILE_NOT_FOUND"        // 404
	ErrNameAlreadyExists    ErrorCode = "NAME_ALREADY_EXISTS"   // 409
	ErrDiscoveryUnavailable ErrorCode = "DISCOVERY_UNAVAILABLE" // 503
	ErrInternal             ErrorCode = "INTERNAL"              // 500
)

// BsshError represents a structured error with code, status, and details.
type BsshError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *BsshError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *BsshError {
	return &BsshError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a connection cannot be found.
func NewNotFound(identifier string) *BsshError {
	return &BsshError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("connection not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *BsshError {
	return &BsshError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNameAlreadyExists creates a 409 error for name collisions.
func NewNameAlreadyExists(name string) *BsshError {
	return &BsshError{
		Code:    ErrNameAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("connection with name %q already exists", name),
		Details: map[string]any{"name": name},
	}
}

// NewDiscoveryUnavailable creates a 503 error when every discovery lookup failed.
func NewDiscoveryUnavailable(failed int) *BsshError {
	return &BsshError{
		Code:    ErrDiscoveryUnavailable,
		Status:  503,
		Message: "connection discovery unavailable: all store lookups failed",
		Details: map[string]any{"failed_lookups": failed},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *BsshError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &BsshError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if err (or anything it wraps) is a BsshError with the given code.
func Is(err error, code ErrorCode) bool {
	var bErr *BsshError
	if stderrors.As(err, &bErr) {
		return bErr.Code == code
	}
	return false
}

// As exposes the standard library errors.As so callers importing this
// package under the name "errors" keep access to it.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
