package postgres

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Transactor implements ports.Transactor on a pgx pool. The open pgx.Tx
// travels in the context handed to fn.
type Transactor struct {
	pool Pool
	log  zerolog.Logger
}

// NewTransactor creates a new Transactor wrapping the connection pool.
func NewTransactor(pool Pool, log zerolog.Logger) *Transactor {
	return &Transactor{pool: pool, log: log}
}

// WithinTx runs fn in a transaction, committing when fn returns nil. Nested
// calls join the outer transaction.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return mapError("begin transaction", err)
	}

	if err := fn(withTx(ctx, tx)); err != nil {
		// The original error wins; a rollback failure is only logged.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, context.Canceled) {
			t.log.Warn().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}
