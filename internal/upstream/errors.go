package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError is a transport-level failure: the request never produced an
// HTTP response.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AppError is an application-level failure: a non-2xx status or a body with
// success=false. Message is the body's message, empty when it had none.
type AppError struct {
	Status  int
	Message string
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error (HTTP %d)", e.Status)
}

// AuthError means the upstream rejected our credentials. Callers send the
// user back to the login page instead of showing a generic failure.
type AuthError struct {
	Status  int
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream authentication failed (HTTP %d, %s)", e.Status, e.Code)
	}
	return fmt.Sprintf("upstream authentication failed (HTTP %d)", e.Status)
}

// authCodes are body error codes treated as authentication failures
// regardless of HTTP status.
var authCodes = map[string]bool{
	"UNAUTHORIZED":  true,
	"TOKEN_EXPIRED": true,
	"INVALID_TOKEN": true,
	"AUTH_REQUIRED": true,
	"NO_TOKEN":      true,
}

func isAuthFailure(status int, code string) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden || authCodes[code]
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// UserMessage returns the text shown to an operator for a failed load of
// what ("notifications", "login history"...). Network and application
// failures surface the same way; the body message wins when present.
func UserMessage(err error, what string) string {
	if err == nil {
		return ""
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return "Session expired. Please log in again."
	}
	var app *AppError
	if errors.As(err, &app) && app.Message != "" {
		return app.Message
	}
	return "Failed to load " + what
}
