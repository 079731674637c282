package memory

import (
	"context"
	"fmt"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"

	"github.com/google/uuid"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	store *Store
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(store *Store) *TransactionRepo {
	return &TransactionRepo{store: store}
}

// Create stages the row in the current unit of work, or inserts it directly
// when called outside one.
func (r *TransactionRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	if u, ok := unitFrom(ctx); ok {
		r.store.mu.RLock()
		_, taken := r.store.byKey[tx.IdempotencyKey]
		r.store.mu.RUnlock()
		if taken {
			return fmt.Errorf("insert transaction: %w", ports.ErrDuplicateKey)
		}
		u.txns = append(u.txns, copyTransaction(tx))
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, taken := r.store.byKey[tx.IdempotencyKey]; taken {
		return fmt.Errorf("insert transaction: %w", ports.ErrDuplicateKey)
	}
	r.store.insertTransaction(tx)
	return nil
}

func (r *TransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	tx, ok := r.store.transactions[id]
	if !ok {
		return nil, nil
	}
	return copyTransaction(tx), nil
}

func (r *TransactionRepo) GetByIdempotencyKey(_ context.Context, key string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	id, ok := r.store.byKey[key]
	if !ok {
		return nil, nil
	}
	return copyTransaction(r.store.transactions[id]), nil
}
