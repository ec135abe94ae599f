package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound         = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists    = new(ErrCodeAlreadyExists, "resource already exists")
	ErrVersionConflict  = new(ErrCodeVersionConflict, "version conflict")
	ErrValidation       = new(ErrCodeValidation, "validation error")
	ErrIllegalState     = new(ErrCodeIllegalState, "operation not allowed in current state")
	ErrConversion       = new(ErrCodeConversion, "amount conversion error")
	ErrChainUnavailable = new(ErrCodeChainUnavailable, "chain unavailable")
	ErrRelayUnavailable = new(ErrCodeRelayUnavailable, "relay unavailable")
	ErrUnauthenticated  = new(ErrCodeUnauthenticated, "unauthenticated")
	ErrPermissionDenied = new(ErrCodePermissionDenied, "permission denied")
	ErrHTTPClient       = new(ErrCodeHTTPClient, "http client error")
	ErrDatabase         = new(ErrCodeDatabase, "database error")
	ErrSystem           = new(ErrCodeSystemError, "system error")
	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrChainUnavailable: http.StatusServiceUnavailable,
		ErrRelayUnavailable: http.StatusServiceUnavailable,
		ErrHTTPClient:       http.StatusInternalServerError,
		ErrDatabase:         http.StatusInternalServerError,
		ErrNotFound:         http.StatusNotFound,
		ErrAlreadyExists:    http.StatusConflict,
		ErrVersionConflict:  http.StatusConflict,
		ErrIllegalState:     http.StatusConflict,
		ErrValidation:       http.StatusBadRequest,
		ErrConversion:       http.StatusUnprocessableEntity,
		ErrUnauthenticated:  http.StatusUnauthorized,
		ErrPermissionDenied: http.StatusForbidden,
		ErrSystem:           http.StatusInternalServerError,
	}
	// dependency errors win over the generic http client marker when both are present
	statusPrecedence = []error{
		ErrChainUnavailable,
		ErrRelayUnavailable,
		ErrNotFound,
		ErrAlreadyExists,
		ErrVersionConflict,
		ErrIllegalState,
		ErrValidation,
		ErrConversion,
		ErrUnauthenticated,
		ErrPermissionDenied,
		ErrHTTPClient,
		ErrDatabase,
		ErrSystem,
	}
)

const (
	ErrCodeHTTPClient       = "http_client_error"
	ErrCodeSystemError      = "system_error"
	ErrCodeNotFound         = "not_found"
	ErrCodeAlreadyExists    = "already_exists"
	ErrCodeVersionConflict  = "version_conflict"
	ErrCodeValidation       = "validation_error"
	ErrCodeIllegalState     = "illegal_state"
	ErrCodeConversion       = "conversion_error"
	ErrCodeChainUnavailable = "chain_unavailable"
	ErrCodeRelayUnavailable = "relay_unavailable"
	ErrCodeUnauthenticated  = "unauthenticated"
	ErrCodePermissionDenied = "permission_denied"
	ErrCodeDatabase         = "database_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

// New creates a new InternalError with the given code
func New(code string, message string) *InternalError {
	return new(code, message)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsVersionConflict checks if an error is a version conflict error
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsIllegalState checks if an error is an illegal state transition error
func IsIllegalState(err error) bool {
	return errors.Is(err, ErrIllegalState)
}

// IsConversion checks if an error is an amount conversion error
func IsConversion(err error) bool {
	return errors.Is(err, ErrConversion)
}

// IsDependencyUnavailable reports whether the chain or the relay could not be reached.
// Callers may retry these.
func IsDependencyUnavailable(err error) bool {
	return errors.Is(err, ErrChainUnavailable) || errors.Is(err, ErrRelayUnavailable)
}

// IsUnauthenticated checks if an error is an unauthenticated error
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// IsPermissionDenied checks if an error is a permission denied error
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsHTTPClient checks if an error is an http client error
func IsHTTPClient(err error) bool {
	return errors.Is(err, ErrHTTPClient)
}

func HTTPStatusFromErr(err error) int {
	for _, e := range statusPrecedence {
		if errors.Is(err, e) {
			return statusCodeMap[e]
		}
	}
	return http.StatusInternalServerError
}
