package postgres

import (
	"context"
	"errors"
	"fmt"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const walletColumnList = `id, owner_id, kind, balance_minor, status, created_at, updated_at`

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumnList + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		w.ID, w.OwnerID, w.Kind, w.Balance, w.Status, w.CreatedAt, w.UpdatedAt,
	)
	return mapError("insert wallet", err)
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumnList + ` FROM wallets WHERE id = $1`
	return scanWallet(conn(ctx, r.pool).QueryRow(ctx, query, id), "get wallet by id")
}

// LockForUpdate takes row locks one wallet at a time in the order given, so
// two transfers over the same pair always queue on the same row first.
// Missing wallets are absent from the result. It MUST be called within a
// transaction.
func (r *WalletRepo) LockForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Wallet, error) {
	tx, ok := txFrom(ctx)
	if !ok {
		return nil, errors.New("lock wallets: no transaction in context")
	}

	query := `SELECT ` + walletColumnList + ` FROM wallets WHERE id = $1 FOR UPDATE`

	locked := make(map[uuid.UUID]*domain.Wallet, len(ids))
	for _, id := range ids {
		w, err := scanWallet(tx.QueryRow(ctx, query, id), "lock wallet")
		if err != nil {
			return nil, err
		}
		if w != nil {
			locked[id] = w
		}
	}
	return locked, nil
}

// AdjustBalance adds delta to the balance within the current transaction.
// The wallets_balance_non_negative constraint rejects overdrafts.
func (r *WalletRepo) AdjustBalance(ctx context.Context, id uuid.UUID, delta domain.Money) error {
	tx, ok := txFrom(ctx)
	if !ok {
		return errors.New("adjust balance: no transaction in context")
	}

	query := `UPDATE wallets SET balance_minor = balance_minor + $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, delta, id)
	if err != nil {
		return mapError("adjust balance", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", id)
	}
	return nil
}

// SumActiveBalances totals active customer wallets in a single statement,
// which PostgreSQL evaluates against one snapshot.
func (r *WalletRepo) SumActiveBalances(ctx context.Context) (*ports.LiabilitySummary, error) {
	query := `SELECT COALESCE(SUM(balance_minor), 0), COUNT(*)
		FROM wallets WHERE kind = $1 AND status = $2`

	s := &ports.LiabilitySummary{}
	err := conn(ctx, r.pool).QueryRow(ctx, query, domain.WalletKindCustomer, domain.WalletStatusActive).
		Scan(&s.Total, &s.ActiveWallets)
	if err != nil {
		return nil, mapError("sum liabilities", err)
	}
	return s, nil
}

func scanWallet(row pgx.Row, op string) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.OwnerID, &w.Kind, &w.Balance, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return w, nil
}
