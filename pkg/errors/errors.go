package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"
	// ErrorTypeBadRequest indicates a bad request
	ErrorTypeBadRequest ErrorType = "BAD_REQUEST"
	// ErrorTypeConflict indicates a conflict
	ErrorTypeConflict ErrorType = "CONFLICT"
	// ErrorTypeResolution indicates a media identifier could not be resolved
	ErrorTypeResolution ErrorType = "RESOLUTION"
	// ErrorTypeUnreachable indicates a download backend could not be reached
	ErrorTypeUnreachable ErrorType = "UNREACHABLE"
	// ErrorTypeRejected indicates a download backend declined the submission
	ErrorTypeRejected ErrorType = "REJECTED"
	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new application error
func New(errorType ErrorType, message string) error {
	return &AppError{
		Type:    errorType,
		Message: message,
	}
}

// Wrap wraps an error with an application error
func Wrap(errorType ErrorType, message string, err error) error {
	return &AppError{
		Type:    errorType,
		Message: message,
		Err:     err,
	}
}

// NotFound creates a not found error
func NotFound(message string) error {
	return New(ErrorTypeNotFound, message)
}

// BadRequest creates a bad request error
func BadRequest(message string) error {
	return New(ErrorTypeBadRequest, message)
}

// Conflict creates a conflict error
func Conflict(message string) error {
	return New(ErrorTypeConflict, message)
}

// Resolution creates a resolution error
func Resolution(message string) error {
	return New(ErrorTypeResolution, message)
}

// ResolutionWrap wraps a provider or storage failure into a resolution error
func ResolutionWrap(message string, err error) error {
	return Wrap(ErrorTypeResolution, message, err)
}

// Unreachable creates a backend unreachable error
func Unreachable(message string) error {
	return New(ErrorTypeUnreachable, message)
}

// UnreachableWrap wraps a transport failure into a backend unreachable error
func UnreachableWrap(message string, err error) error {
	return Wrap(ErrorTypeUnreachable, message, err)
}

// Rejected creates a backend rejected error
func Rejected(message string) error {
	return New(ErrorTypeRejected, message)
}

// Internal creates an internal error
func Internal(message string) error {
	return New(ErrorTypeInternal, message)
}

func isType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsBadRequest checks if an error is a bad request error
func IsBadRequest(err error) bool {
	return isType(err, ErrorTypeBadRequest)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return isType(err, ErrorTypeConflict)
}

// IsResolution checks if an error is a resolution error
func IsResolution(err error) bool {
	return isType(err, ErrorTypeResolution)
}

// IsUnreachable checks if an error is a backend unreachable error
func IsUnreachable(err error) bool {
	return isType(err, ErrorTypeUnreachable)
}

// IsRejected checks if an error is a backend rejected error
func IsRejected(err error) bool {
	return isType(err, ErrorTypeRejected)
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	return isType(err, ErrorTypeInternal)
}

// IsDuplicateError checks if an error is a duplicate key error
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "duplicate entry")
}
