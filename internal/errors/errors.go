// Package errors provides custom error types for the cargotrack API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	// ErrInvalidCredentials deliberately does not distinguish unknown email
	// from wrong password.
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrInvalidToken       = &AppError{Code: "INVALID_TOKEN", Message: "Invalid or expired token", StatusCode: http.StatusUnauthorized}
	ErrAccountDisabled    = &AppError{Code: "ACCOUNT_DISABLED", Message: "Account is deactivated", StatusCode: http.StatusForbidden}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrTooManyRequests    = &AppError{Code: "TOO_MANY_REQUESTS", Message: "Too many attempts, try again later", StatusCode: http.StatusTooManyRequests}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound          = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail        = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
	ErrDuplicateWhatsApp     = &AppError{Code: "DUPLICATE_WHATSAPP", Message: "A user with this WhatsApp number already exists", StatusCode: http.StatusConflict}
	ErrDuplicatePersonalCode = &AppError{Code: "DUPLICATE_PERSONAL_CODE", Message: "A user with this personal code already exists", StatusCode: http.StatusConflict}
)

// Warehouse errors.
var (
	ErrWarehouseNotFound      = &AppError{Code: "WAREHOUSE_NOT_FOUND", Message: "Warehouse not found", StatusCode: http.StatusNotFound}
	ErrDuplicateWarehouseCode = &AppError{Code: "DUPLICATE_WAREHOUSE_CODE", Message: "A warehouse with this code already exists", StatusCode: http.StatusConflict}
)

// Track errors.
var (
	ErrTrackNotFound        = &AppError{Code: "TRACK_NOT_FOUND", Message: "Track not found", StatusCode: http.StatusNotFound}
	ErrDuplicateTrack       = &AppError{Code: "DUPLICATE_TRACK", Message: "A track with this number already exists", StatusCode: http.StatusConflict}
	ErrTrackAlreadyAssigned = &AppError{Code: "TRACK_ALREADY_ASSIGNED", Message: "Track is already assigned to another client", StatusCode: http.StatusConflict}
)
