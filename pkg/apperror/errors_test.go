package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("PAY_001", "Insufficient funds", http.StatusPaymentRequired),
			expected: "[PAY_001] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusServiceUnavailable, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusServiceUnavailable, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("PAY_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("transfer: %w", ErrInsufficientFunds())

	assert.True(t, errors.Is(err, ErrInsufficientFunds()))
	assert.False(t, errors.Is(err, ErrInvalidAmount()))
	assert.Equal(t, "PAY_001", CodeOf(err))
	assert.Empty(t, CodeOf(errors.New("plain")))
}

func TestAuthErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"AuthenticationRequired", ErrAuthenticationRequired(), "AUTH_001", 401},
		{"InvalidCredential", ErrInvalidCredential(), "AUTH_002", 401},
		{"ScaNotEnabled", ErrScaNotEnabled(), "AUTH_003", 403},
		{"TokenExpiredOrConsumed", ErrTokenExpiredOrConsumed(), "AUTH_004", 401},
		{"TokenContextMismatch", ErrTokenContextMismatch(), "AUTH_005", 403},
		{"Forbidden", ErrForbidden(), "AUTH_006", 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestLedgerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InsufficientFunds", ErrInsufficientFunds(), "PAY_001", 402},
		{"InvalidAmount", ErrInvalidAmount(), "PAY_002", 400},
		{"AccountNotFoundOrInactive", ErrAccountNotFoundOrInactive(), "PAY_003", 404},
		{"NotFound", ErrNotFound("Snapshot"), "PAY_004", 404},
		{"InvalidStateTransition", ErrInvalidStateTransition("nope"), "PAY_005", 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestInvalidAmount_CarriesSentinel(t *testing.T) {
	err := fmt.Errorf("parse: %w", ErrInvalidAmount())
	assert.ErrorIs(t, err, ErrAmount)
	assert.NotErrorIs(t, Validation("Invalid amount"), ErrAmount)
	assert.Equal(t, "PAY_002", CodeOf(err))
}

func TestIdempotencyKeyReused_CarriesSentinel(t *testing.T) {
	err := ErrIdempotencyKeyReused()
	assert.ErrorIs(t, err, ErrKeyReused)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.NotErrorIs(t, ErrInvalidAmount(), ErrKeyReused)
}

func TestNotFound_Message(t *testing.T) {
	err := ErrNotFound("Wallet")
	assert.Equal(t, "Wallet not found", err.Message)
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("db down")

	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"StorageUnavailable", ErrStorageUnavailable(inner), "SYS_001", 503},
		{"ConcurrentModification", ErrConcurrentModification(inner), "SYS_002", 409},
		{"OperationTimeout", ErrOperationTimeout(inner), "SYS_004", 504},
		{"InternalError", InternalError(inner), "SYS_000", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
			assert.True(t, errors.Is(tt.err, inner))
		})
	}
}

func TestValidation(t *testing.T) {
	err := Validation("amount must have at most 2 decimal places")
	assert.Equal(t, "PAY_002", err.Code)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.Equal(t, "amount must have at most 2 decimal places", err.Message)
}
