package postgres

import (
	"context"
	"testing"
	"time"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction() *domain.Transaction {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Transaction{
		ID:             uuid.New(),
		IdempotencyKey: "pay-001",
		FromAccount:    uuid.New(),
		ToAccount:      uuid.New(),
		Amount:         15000,
		Kind:           domain.TransactionKindPeerPayment,
		Status:         domain.TransactionStatusCompleted,
		Metadata:       map[string]string{"note": "rent"},
		InitiatedBy:    uuid.New(),
		CreatedAt:      now,
		CompletedAt:    &now,
	}
}

func txColumns() []string {
	return []string{"id", "idempotency_key", "from_account", "to_account", "amount_minor", "kind",
		"status", "failure_reason", "metadata", "initiated_by", "created_at", "completed_at"}
}

func txRow(t *domain.Transaction) *pgxmock.Rows {
	return pgxmock.NewRows(txColumns()).AddRow(
		t.ID, t.IdempotencyKey, t.FromAccount, t.ToAccount, t.Amount, t.Kind,
		t.Status, nullString(t.FailureReason), t.Metadata, t.InitiatedBy, t.CreatedAt, t.CompletedAt,
	)
}

func TestTransactionRepo_Create_InTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction()
	ctx := beginTx(t, mock)

	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(
			txn.ID, txn.IdempotencyKey, txn.FromAccount, txn.ToAccount, txn.Amount, txn.Kind,
			txn.Status, (*string)(nil), txn.Metadata, txn.InitiatedBy, txn.CreatedAt, txn.CompletedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(ctx, txn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_Create_DuplicateKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction()

	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(
			txn.ID, txn.IdempotencyKey, txn.FromAccount, txn.ToAccount, txn.Amount, txn.Kind,
			txn.Status, (*string)(nil), txn.Metadata, txn.InitiatedBy, txn.CreatedAt, txn.CompletedAt,
		).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "transactions_idempotency_key_unique"})

	err = repo.Create(context.Background(), txn)
	assert.ErrorIs(t, err, ports.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByIdempotencyKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestTransaction()
	txn.Status = domain.TransactionStatusFailed
	txn.FailureReason = domain.FailureInsufficientFunds
	txn.CompletedAt = nil

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE idempotency_key").
		WithArgs("pay-001").
		WillReturnRows(txRow(txn))

	result, err := repo.GetByIdempotencyKey(context.Background(), "pay-001")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, txn.ID, result.ID)
	assert.Equal(t, domain.FailureInsufficientFunds, result.FailureReason)
	assert.Nil(t, result.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(txColumns()))

	result, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}
