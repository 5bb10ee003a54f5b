package authcore

import (
	"fmt"
	"net/http"
)

// Code identifies a domain error class. Codes are stable API surface;
// hosts switch on them, so values never change meaning.
type Code string

const (
	CodeInvalidRequest     Code = "INVALID_REQUEST"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidToken       Code = "INVALID_TOKEN"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeNotAuthenticated   Code = "NOT_AUTHENTICATED"
	CodeSessionExpired     Code = "SESSION_EXPIRED"
	CodeSessionNotFound    Code = "SESSION_NOT_FOUND"
	CodeAccountLocked      Code = "ACCOUNT_LOCKED"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeEmailNotVerified   Code = "EMAIL_NOT_VERIFIED"
	CodeEndpointNotFound   Code = "ENDPOINT_NOT_FOUND"
	CodeEmailExists        Code = "EMAIL_ALREADY_EXISTS"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Error is a typed domain error carrying the taxonomy code, the HTTP
// status the dispatcher shapes it into, and optional per-field validation
// detail. All domain failures are recovered into an *Error at the handler
// boundary; only genuinely unexpected failures reach the dispatcher's
// outer recover.
type Error struct {
	Code    Code
	Status  int
	Message string
	Fields  map[string]string
	// RetryAfter accompanies RATE_LIMITED responses, in seconds.
	RetryAfter int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches two *Error values by code, so errors.Is works against the
// package-level sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel instances of each error class. Handlers return these directly
// when no extra detail is needed.
var (
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid email or password"}
	ErrNotAuthenticated   = &Error{Code: CodeNotAuthenticated, Status: http.StatusUnauthorized, Message: "not authenticated"}
	ErrSessionExpired     = &Error{Code: CodeSessionExpired, Status: http.StatusUnauthorized, Message: "session expired"}
	ErrSessionNotFound    = &Error{Code: CodeSessionNotFound, Status: http.StatusNotFound, Message: "session not found"}
	ErrAccountLocked      = &Error{Code: CodeAccountLocked, Status: http.StatusForbidden, Message: "account temporarily locked"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Status: http.StatusForbidden, Message: "not allowed"}
	ErrEmailNotVerified   = &Error{Code: CodeEmailNotVerified, Status: http.StatusForbidden, Message: "email address not verified"}
	ErrEmailExists        = &Error{Code: CodeEmailExists, Status: http.StatusConflict, Message: "email already registered"}
	ErrInvalidToken       = &Error{Code: CodeInvalidToken, Status: http.StatusBadRequest, Message: "invalid or expired token"}
	ErrEndpointNotFound   = &Error{Code: CodeEndpointNotFound, Status: http.StatusNotFound, Message: "endpoint not found"}
	ErrInternal           = &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "internal error"}
)

// NewValidationError builds an INVALID_REQUEST error with per-field
// messages.
func NewValidationError(fields map[string]string) *Error {
	return &Error{
		Code:    CodeInvalidRequest,
		Status:  http.StatusBadRequest,
		Message: "request validation failed",
		Fields:  fields,
	}
}

// NewInvalidInputError builds an INVALID_INPUT error with a caller-facing
// message.
func NewInvalidInputError(message string) *Error {
	return &Error{
		Code:    CodeInvalidInput,
		Status:  http.StatusBadRequest,
		Message: message,
	}
}

// NewRateLimitError builds a RATE_LIMITED error carrying the retry delay.
func NewRateLimitError(retryAfter int) *Error {
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &Error{
		Code:       CodeRateLimited,
		Status:     http.StatusTooManyRequests,
		Message:    "too many requests",
		RetryAfter: retryAfter,
	}
}

// CodeOf extracts the taxonomy code from err, or CodeInternal for
// anything that is not a domain *Error.
func CodeOf(err error) Code {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeInternal
}
