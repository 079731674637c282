package postgres

import (
	"errors"
	"testing"

	"emoney-core/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "transactions_idempotency_key_unique"}, ports.ErrDuplicateKey},
		{"check violation", &pgconn.PgError{Code: "23514", ConstraintName: "wallets_balance_non_negative"}, ports.ErrBalanceConstraint},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, ports.ErrConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, ports.ErrConflict},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, ports.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError("op", tt.err), tt.target)
		})
	}
}

func TestMapError_PassesThroughOthers(t *testing.T) {
	assert.NoError(t, mapError("op", nil))

	plain := errors.New("connection reset")
	err := mapError("op", plain)
	assert.ErrorIs(t, err, plain)
	assert.NotErrorIs(t, err, ports.ErrConflict)
	assert.Contains(t, err.Error(), "op: ")
}
