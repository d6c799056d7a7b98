package api

import (
	"errors"
	"net/http"

	"github.com/good-yellow-bee/pricedesk/internal/dashboard"
	"github.com/good-yellow-bee/pricedesk/internal/filter"
	"github.com/good-yellow-bee/pricedesk/internal/upstream"
)

// Error represents an API error response.
type Error struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	LoginURL string `json:"login_url,omitempty"`
	Status   int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// Common error codes
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeAuthRequired     = "AUTH_REQUIRED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeUpstream         = "UPSTREAM_ERROR"
)

// Standard errors
var (
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

	ErrDashboardNotFound = &Error{
		Code:    ErrCodeNotFound,
		Message: "Dashboard not found",
		Status:  http.StatusNotFound,
	}

	ErrInternalServer = &Error{
		Code:    ErrCodeInternalError,
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}

	ErrLoadInProgress = &Error{
		Code:    ErrCodeConflict,
		Message: "A refresh is already in progress",
		Status:  http.StatusConflict,
	}
)

// NewAuthRequired creates the 401 that sends the client back to loginURL.
func NewAuthRequired(loginURL string) *Error {
	return &Error{
		Code:     ErrCodeAuthRequired,
		Message:  "Session expired. Please log in again.",
		LoginURL: loginURL,
		Status:   http.StatusUnauthorized,
	}
}

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

// NewNotFound creates a not found error with custom message.
func NewNotFound(message string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: message,
		Status:  http.StatusNotFound,
	}
}

// NewUpstreamError creates a 502 carrying the user-facing message.
func NewUpstreamError(message string) *Error {
	return &Error{
		Code:    ErrCodeUpstream,
		Message: message,
		Status:  http.StatusBadGateway,
	}
}

// FromError maps pipeline and upstream errors onto API errors. what names
// the collection in failure messages.
func FromError(err error, what, loginURL string) *Error {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case upstream.IsAuth(err):
		return NewAuthRequired(loginURL)
	case errors.Is(err, dashboard.ErrLoadInProgress):
		return ErrLoadInProgress
	case errors.Is(err, dashboard.ErrReadOnly):
		return &Error{Code: ErrCodeForbidden, Message: "Dashboard does not support changes", Status: http.StatusForbidden}
	case errors.Is(err, dashboard.ErrInvalidStatus):
		return NewValidationError(err.Error())
	case errors.Is(err, dashboard.ErrUnknownChart):
		return NewNotFound("Chart not found")
	case errors.Is(err, filter.ErrUnknownField):
		return NewBadRequest(err.Error())
	}

	var appErr *upstream.AppError
	if errors.As(err, &appErr) || upstream.IsNetwork(err) {
		return NewUpstreamError(upstream.UserMessage(err, what))
	}
	return ErrInternalServer
}
