package ports

import "errors"

// Sentinel errors returned by storage adapters. Services translate them into
// apperror values; adapters never return apperror themselves.
var (
	// ErrNotFound: a conditional update matched no row.
	ErrNotFound = errors.New("not found")
	// ErrTokenInvalid: the authorization token is unknown, expired or already consumed.
	ErrTokenInvalid = errors.New("authorization token invalid")
	// ErrDuplicateKey: a unique constraint (idempotency key, snapshot date) was violated.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrBalanceConstraint: a write would have driven a balance negative.
	ErrBalanceConstraint = errors.New("balance constraint violated")
	// ErrConflict: serialization failure, deadlock or lock timeout. Retryable.
	ErrConflict = errors.New("concurrent modification conflict")
)
