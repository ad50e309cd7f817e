package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeInvalidArgument represents malformed or empty names and wrong call arity
	ErrTypeInvalidArgument ErrorType = "invalid_argument"
	// ErrTypeConstruction represents a driver failure while building a handle
	ErrTypeConstruction ErrorType = "construction"
	// ErrTypeConnection represents connection-related errors
	ErrTypeConnection ErrorType = "connection"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeNotFound represents resource not found errors
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		contextParts := make([]string, 0, len(keys))
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
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

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// InvalidArgumentError creates a new invalid-argument error
func InvalidArgumentError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeInvalidArgument,
		Message: msg,
	}
}

// ConstructionError creates a new construction-failure error.
// The driver error is kept verbatim as the cause.
func ConstructionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeConstruction,
		Message: msg,
		Cause:   cause,
	}
}

// ConnectionError creates a new connection error
func ConnectionError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeConnection,
		Message: msg,
		Cause:   cause,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// IsType checks if an error, or any error it wraps, is an AppError of a specific type
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}

	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return ErrTypeInternal
	}

	return appErr.Type
}

// AsAppError returns the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return nil, false
	}
	return appErr, true
}
