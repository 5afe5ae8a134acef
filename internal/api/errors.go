package api

import (
	"errors"
	"net/http"

	"github.com/good-yellow-bee/crowdwatch/internal/crowd"
)

// Error represents an API error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// Common error codes
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeAccountLocked      = "ACCOUNT_LOCKED"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeStorageTimeout     = "STORAGE_TIMEOUT"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
)

// Standard errors
var (
	ErrUnauthorized = &Error{
		Code:    ErrCodeUnauthorized,
		Message: "Invalid credentials",
		Status:  http.StatusUnauthorized,
	}

	ErrInvalidToken = &Error{
		Code:    ErrCodeUnauthorized,
		Message: "Invalid or expired token",
		Status:  http.StatusUnauthorized,
	}

	ErrForbidden = &Error{
		Code:    ErrCodeForbidden,
		Message: "Access denied",
		Status:  http.StatusForbidden,
	}

	ErrNotFound = &Error{
		Code:    ErrCodeNotFound,
		Message: "Resource not found",
		Status:  http.StatusNotFound,
	}

	ErrInternalServer = &Error{
		Code:    ErrCodeInternalError,
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}

	ErrRateLimited = &Error{
		Code:    ErrCodeRateLimited,
		Message: "Too many requests",
		Status:  http.StatusTooManyRequests,
	}

	ErrStorageTimeout = &Error{
		Code:    ErrCodeStorageTimeout,
		Message: "Storage operation timed out",
		Status:  http.StatusGatewayTimeout,
	}

	ErrStorageUnavailable = &Error{
		Code:    ErrCodeStorageUnavailable,
		Message: "Storage temporarily unavailable",
		Status:  http.StatusServiceUnavailable,
	}
)

// NewBadRequest creates a bad request error with custom message.
func NewBadRequest(message string) *Error {
	return &Error{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewValidationError creates a validation error with custom message.
func NewValidationError(message string) *Error {
	return &Error{
		Code:    ErrCodeValidationFailed,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewConflict creates a conflict error with custom message.
func NewConflict(message string) *Error {
	return &Error{
		Code:    ErrCodeConflict,
		Message: message,
		Status:  http.StatusConflict,
	}
}

// NewNotFound creates a not found error with custom message.
func NewNotFound(message string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: message,
		Status:  http.StatusNotFound,
	}
}

// FromDomainError maps ingestion pipeline errors to API errors.
func FromDomainError(err error) *Error {
	switch {
	case errors.Is(err, crowd.ErrInvalidInput):
		return NewValidationError(err.Error())
	case errors.Is(err, crowd.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, crowd.ErrStorageTimeout):
		return ErrStorageTimeout
	case errors.Is(err, crowd.ErrStorageUnavailable):
		return ErrStorageUnavailable
	default:
		return ErrInternalServer
	}
}
