package postgres

import (
	"context"
	"errors"

	"emoney-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumnList = `id, idempotency_key, from_account, to_account, amount_minor, kind,
	status, failure_reason, metadata, initiated_by, created_at, completed_at`

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a transaction, joining the transaction in ctx if any.
func (r *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumnList + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		t.ID, t.IdempotencyKey, t.FromAccount, t.ToAccount, t.Amount, t.Kind,
		t.Status, nullString(t.FailureReason), t.Metadata, t.InitiatedBy, t.CreatedAt, t.CompletedAt,
	)
	return mapError("insert transaction", err)
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumnList + ` FROM transactions WHERE id = $1`
	return scanTransaction(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

// GetByIdempotencyKey fetches the transaction recorded under key.
func (r *TransactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumnList + ` FROM transactions WHERE idempotency_key = $1`
	return scanTransaction(conn(ctx, r.pool).QueryRow(ctx, query, key))
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var reason *string
	err := row.Scan(
		&t.ID, &t.IdempotencyKey, &t.FromAccount, &t.ToAccount, &t.Amount, &t.Kind,
		&t.Status, &reason, &t.Metadata, &t.InitiatedBy, &t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("scan transaction", err)
	}
	if reason != nil {
		t.FailureReason = *reason
	}
	return t, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
