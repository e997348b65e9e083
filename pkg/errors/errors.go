package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents an application-specific error code
type Code string

const (
	// Validation errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeMissingField    Code = "MISSING_FIELD"

	// Authentication errors
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeInvalidToken    Code = "INVALID_TOKEN"
	CodeExpiredToken    Code = "EXPIRED_TOKEN"
	CodeInvalidCreds    Code = "INVALID_CREDENTIALS"

	// Authorization errors
	CodeForbidden Code = "FORBIDDEN"

	// Not found errors
	CodeNotFound     Code = "NOT_FOUND"
	CodeUserNotFound Code = "USER_NOT_FOUND"
	CodeCallNotFound Code = "CALL_NOT_FOUND"
	CodeChatNotFound Code = "CHAT_NOT_FOUND"

	// State errors
	CodeInvalidState Code = "INVALID_STATE"

	// Conflict errors
	CodeConflict       Code = "CONFLICT"
	CodeUsernameExists Code = "USERNAME_EXISTS"

	// Internal errors
	CodeInternal Code = "INTERNAL_ERROR"
	CodeDatabase Code = "DATABASE_ERROR"
)

// AppError is a structured application error with code, message, and HTTP status
type AppError struct {
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the given code, message, and HTTP status
func New(code Code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an existing error with an AppError and a specific status code
func Wrap(code Code, message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Validation errors

func InvalidArgumentError(message string) *AppError {
	return New(CodeInvalidArgument, message, http.StatusBadRequest)
}

func MissingFieldError(field string) *AppError {
	return New(CodeMissingField, fmt.Sprintf("Missing required field: %s", field), http.StatusBadRequest)
}

// Authentication errors

func UnauthenticatedError(message string) *AppError {
	return New(CodeUnauthenticated, message, http.StatusUnauthorized)
}

func InvalidTokenError(message string) *AppError {
	return New(CodeInvalidToken, message, http.StatusUnauthorized)
}

func ExpiredTokenError() *AppError {
	return New(CodeExpiredToken, "Token has expired", http.StatusUnauthorized)
}

func InvalidCredentialsError() *AppError {
	return New(CodeInvalidCreds, "Invalid username or password", http.StatusUnauthorized)
}

// Authorization errors

func ForbiddenError(message string) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

// Not found errors

func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func UserNotFoundError() *AppError {
	return New(CodeUserNotFound, "User not found", http.StatusNotFound)
}

func CallNotFoundError() *AppError {
	return New(CodeCallNotFound, "Call not found", http.StatusNotFound)
}

func ChatNotFoundError() *AppError {
	return New(CodeChatNotFound, "Chat not found", http.StatusNotFound)
}

// State errors

// InvalidStateError reports a transition that is not permitted from the
// entity's current status.
func InvalidStateError(message string) *AppError {
	return New(CodeInvalidState, message, http.StatusConflict)
}

// Conflict errors

func ConflictError(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict)
}

func UsernameExistsError() *AppError {
	return New(CodeUsernameExists, "Username already taken", http.StatusConflict)
}

// Internal errors

func InternalError(message string) *AppError {
	return New(CodeInternal, message, http.StatusInternalServerError)
}

func DatabaseError(err error) *AppError {
	return Wrap(CodeDatabase, "Database error", http.StatusInternalServerError, err)
}

// IsCode reports whether err is an AppError carrying the given code
func IsCode(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetAppError extracts an AppError from err, wrapping anything else as an
// internal error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}
