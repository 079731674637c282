package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another *AppError by code, so errors.Is(err, ErrInsufficientFunds()) works.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// CodeOf returns the AppError code carried by err, or "" if err is not an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ---- Authentication & SCA (AUTH) ----

func ErrAuthenticationRequired() *AppError {
	return New("AUTH_001", "Authentication required", http.StatusUnauthorized)
}

func ErrInvalidCredential() *AppError {
	return New("AUTH_002", "Invalid credential", http.StatusUnauthorized)
}

func ErrScaNotEnabled() *AppError {
	return New("AUTH_003", "Strong customer authentication is not enabled for this user", http.StatusForbidden)
}

func ErrTokenExpiredOrConsumed() *AppError {
	return New("AUTH_004", "Authorization token is invalid, expired or already used", http.StatusUnauthorized)
}

func ErrTokenContextMismatch() *AppError {
	return New("AUTH_005", "Authorization token was issued for a different transaction", http.StatusForbidden)
}

func ErrForbidden() *AppError {
	return New("AUTH_006", "Insufficient privileges", http.StatusForbidden)
}

// ---- Ledger Business Logic (PAY) ----

func ErrInsufficientFunds() *AppError {
	return New("PAY_001", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

// ErrAmount is carried by every ErrInvalidAmount; match it with errors.Is to
// tell a rejected amount apart from other PAY_002 validation failures.
var ErrAmount = errors.New("amount must be a positive number of minor units")

func ErrInvalidAmount() *AppError {
	return Wrap("PAY_002", "Invalid amount", http.StatusBadRequest, ErrAmount)
}

// ErrKeyReused is carried by ErrIdempotencyKeyReused.
var ErrKeyReused = errors.New("idempotency key reused")

func ErrIdempotencyKeyReused() *AppError {
	return Wrap("PAY_002", "idempotency key was already used for a different transfer", http.StatusBadRequest, ErrKeyReused)
}

func ErrAccountNotFoundOrInactive() *AppError {
	return New("PAY_003", "Account not found or inactive", http.StatusNotFound)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrInvalidStateTransition(message string) *AppError {
	return New("PAY_005", message, http.StatusConflict)
}

// ---- System & Infrastructure (SYS) ----

func ErrStorageUnavailable(err error) *AppError {
	return Wrap("SYS_001", "Storage unavailable", http.StatusServiceUnavailable, err)
}

func ErrConcurrentModification(err error) *AppError {
	return Wrap("SYS_002", "Concurrent modification, please retry", http.StatusConflict, err)
}

func ErrOperationTimeout(err error) *AppError {
	return Wrap("SYS_004", "Operation timed out", http.StatusGatewayTimeout, err)
}

// InternalError wraps an internal error as a SYS_000 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_000", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a PAY_002-style validation error.
func Validation(message string) *AppError {
	return New("PAY_002", message, http.StatusBadRequest)
}
