package postgres

import (
	"errors"
	"fmt"

	"emoney-core/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the ledger reacts to.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// mapError tags driver errors with the storage sentinels from ports.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, ports.ErrDuplicateKey, pgErr.ConstraintName)
		case codeCheckViolation:
			return fmt.Errorf("%s: %w: %s", op, ports.ErrBalanceConstraint, pgErr.ConstraintName)
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%s: %w: %s", op, ports.ErrConflict, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
