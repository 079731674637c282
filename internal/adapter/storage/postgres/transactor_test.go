package postgres

import (
	"context"
	"errors"
	"testing"

	"emoney-core/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactor_Commit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	tr := NewTransactor(mock, zerolog.Nop())
	err = tr.WithinTx(context.Background(), func(ctx context.Context) error {
		_, ok := txFrom(ctx)
		require.True(t, ok)
		_, err := conn(ctx, mock).Exec(ctx, "UPDATE wallets SET status = 'inactive'")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_RollbackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	tr := NewTransactor(mock, zerolog.Nop())
	err = tr.WithinTx(context.Background(), func(context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_CommitSerializationFailureIsConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001"})

	tr := NewTransactor(mock, zerolog.Nop())
	err = tr.WithinTx(context.Background(), func(context.Context) error { return nil })

	assert.ErrorIs(t, err, ports.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_NestedJoinsOuter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	tr := NewTransactor(mock, zerolog.Nop())
	err = tr.WithinTx(context.Background(), func(ctx context.Context) error {
		return tr.WithinTx(ctx, func(context.Context) error { return nil })
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
