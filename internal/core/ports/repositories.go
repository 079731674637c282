package ports

import (
	"context"
	"time"

	"emoney-core/internal/core/domain"

	"github.com/google/uuid"
)

// Transactor runs fn inside a storage transaction carried by ctx. Repository
// calls made with that ctx join the transaction; fn returning an error rolls
// everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository reads the identity service's user records.
// Lookups return (nil, nil) when the row does not exist.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// WalletRepository defines persistence operations for ledger accounts.
// GetByID returns (nil, nil) when the wallet does not exist.
// LockForUpdate and AdjustBalance must run inside Transactor.WithinTx.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	// LockForUpdate takes mutation rights on every wallet in ids, in the order given.
	LockForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Wallet, error)
	// AdjustBalance adds delta to the balance. A result below zero fails with ErrBalanceConstraint.
	AdjustBalance(ctx context.Context, id uuid.UUID, delta domain.Money) error
	// SumActiveBalances totals active customer wallets from one consistent read.
	SumActiveBalances(ctx context.Context) (*LiabilitySummary, error)
}

// LiabilitySummary is the aggregate the reconciliation compares against the trust balance.
type LiabilitySummary struct {
	Total         domain.Money
	ActiveWallets int64
}

// TransactionRepository defines persistence operations for transactions.
// Getters return (nil, nil) when no row matches.
type TransactionRepository interface {
	// Create inserts the row; a reused idempotency key fails with ErrDuplicateKey.
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
}

// SnapshotRepository persists one TrustAccountSnapshot per calendar date.
// GetByDate returns (nil, nil) when no snapshot exists for the date.
type SnapshotRepository interface {
	// Upsert inserts or fully replaces the snapshot for snapshot.Date.
	Upsert(ctx context.Context, snapshot *domain.TrustAccountSnapshot) error
	GetByDate(ctx context.Context, date time.Time) (*domain.TrustAccountSnapshot, error)
	// List returns snapshots with from <= date <= to, newest first.
	List(ctx context.Context, from, to time.Time) ([]domain.TrustAccountSnapshot, error)
	// MarkResolved records a resolution on an unresolved discrepancy snapshot.
	// Returns ErrNotFound when no such snapshot exists.
	MarkResolved(ctx context.Context, date time.Time, by uuid.UUID, notes string, at time.Time) error
}

// AuditRepository appends audit records. There is no update or delete.
type AuditRepository interface {
	Create(ctx context.Context, record *domain.AuditRecord) error
}
