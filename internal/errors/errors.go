// Package errors provides custom error types for the Zakatkeeper API.
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
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is temporarily locked", StatusCode: http.StatusLocked}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
	ErrConflict       = &AppError{Code: "CONFLICT", Message: "The record was modified concurrently, retry the operation", StatusCode: http.StatusConflict}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Asset errors.
var (
	ErrAssetNotFound = &AppError{Code: "ASSET_NOT_FOUND", Message: "Asset not found", StatusCode: http.StatusNotFound}
)

// Nisab-Year record lifecycle errors.
var (
	ErrRecordNotFound    = &AppError{Code: "RECORD_NOT_FOUND", Message: "Nisab-Year record not found", StatusCode: http.StatusNotFound}
	ErrDraftExists       = &AppError{Code: "DRAFT_EXISTS", Message: "An active Hawl record already exists", StatusCode: http.StatusConflict}
	ErrInvalidTransition = &AppError{Code: "INVALID_TRANSITION", Message: "The record's status does not allow this operation", StatusCode: http.StatusConflict}
	ErrHawlNotComplete   = &AppError{Code: "HAWL_NOT_COMPLETE", Message: "The Hawl period has not completed yet", StatusCode: http.StatusBadRequest}
	ErrAlreadyFinalized  = &AppError{Code: "ALREADY_FINALIZED", Message: "The record is finalized and cannot be modified", StatusCode: http.StatusConflict}
	ErrRecordNotEditable = &AppError{Code: "RECORD_NOT_EDITABLE", Message: "The record must be unlocked before editing", StatusCode: http.StatusConflict}
	ErrReasonTooShort    = &AppError{Code: "REASON_TOO_SHORT", Message: "Unlock reason must be at least 10 characters", StatusCode: http.StatusBadRequest}
	ErrInconsistentZakat = &AppError{Code: "INCONSISTENT_ZAKAT_AMOUNT", Message: "Zakat amount does not equal 2.5% of zakatable wealth", StatusCode: http.StatusBadRequest}
	ErrPriceUnavailable  = &AppError{Code: "PRICE_UNAVAILABLE", Message: "Metal prices are currently unavailable", StatusCode: http.StatusServiceUnavailable}
)

// Payment errors.
var (
	ErrPaymentNotFound = &AppError{Code: "PAYMENT_NOT_FOUND", Message: "Payment record not found", StatusCode: http.StatusNotFound}
)

// Encryption migration errors.
var (
	ErrNotClientCiphertext = &AppError{Code: "NOT_CLIENT_CIPHERTEXT", Message: "Submitted value is not client-encrypted ciphertext", StatusCode: http.StatusBadRequest}
	ErrFieldNotMigratable  = &AppError{Code: "FIELD_NOT_MIGRATABLE", Message: "The referenced field is not eligible for client re-encryption", StatusCode: http.StatusBadRequest}
)
