package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

// Is lets errors.Is match the typed errors against their sentinels.
func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool    { return target == ErrForbidden }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrState         = errors.New("invalid state")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrTransient     = errors.New("collaborator unavailable")

	// ErrInvalidScope is a validation failure: scope and group ids disagree.
	ErrInvalidScope = &ValidationError{Message: "invalid scope"}

	// ErrTableNotReady is returned when querying or exporting a review table that has not completed.
	ErrTableNotReady = &StateError{Message: "review table not ready", State: "not_completed"}
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (document, membership, project)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// StateError reports an operation that is invalid for the resource's current
// lifecycle state (extending TTL on a private document, querying a table that
// is still processing, ...).
type StateError struct {
	Message string
	State   string // Current state of the resource
}

func (e *StateError) Error() string { return e.Message }

// StatusCode implements the HTTPError interface
func (e *StateError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match against ErrState
func (e *StateError) Is(target error) bool { return target == ErrState }

// QuotaExceededError reports a storage or capacity cap being hit.
type QuotaExceededError struct {
	Message string
	Limit   int64
	Used    int64
}

func (e *QuotaExceededError) Error() string { return e.Message }

// StatusCode implements the HTTPError interface
func (e *QuotaExceededError) StatusCode() int { return http.StatusRequestEntityTooLarge }

// Is allows errors.Is() to match against ErrQuotaExceeded
func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

// NewStateError builds a StateError for the given state.
func NewStateError(state, message string) error {
	return &StateError{Message: message, State: state}
}
