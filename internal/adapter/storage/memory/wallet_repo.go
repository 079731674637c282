package memory

import (
	"context"
	"fmt"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"

	"github.com/google/uuid"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	store *Store
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(store *Store) *WalletRepo {
	return &WalletRepo{store: store}
}

func (r *WalletRepo) Create(_ context.Context, w *domain.Wallet) error {
	if w.Balance < 0 {
		return fmt.Errorf("insert wallet: %w", ports.ErrBalanceConstraint)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.wallets[w.ID]; exists {
		return fmt.Errorf("insert wallet: %w", ports.ErrDuplicateKey)
	}
	cp := *w
	r.store.wallets[w.ID] = &cp
	return nil
}

func (r *WalletRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	w, ok := r.store.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

// LockForUpdate acquires each wallet's exclusive lock in the order given,
// giving up when ctx is done. Locks are held until the unit of work ends.
func (r *WalletRepo) LockForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Wallet, error) {
	u, ok := unitFrom(ctx)
	if !ok {
		return nil, fmt.Errorf("lock wallets: %w", errNoUnit)
	}

	for _, id := range ids {
		if _, mine := u.held[id]; mine {
			continue
		}
		l := r.store.walletLock(id)
		select {
		case l <- struct{}{}:
			u.held[id] = l
			u.order = append(u.order, id)
		case <-ctx.Done():
			return nil, fmt.Errorf("lock wallet %s: %w", id, ctx.Err())
		}
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	locked := make(map[uuid.UUID]*domain.Wallet, len(ids))
	for _, id := range ids {
		if w, ok := r.store.wallets[id]; ok {
			cp := *w
			cp.Balance += u.deltas[id]
			locked[id] = &cp
		}
	}
	return locked, nil
}

// AdjustBalance stages delta on a wallet the unit has locked.
func (r *WalletRepo) AdjustBalance(ctx context.Context, id uuid.UUID, delta domain.Money) error {
	u, ok := unitFrom(ctx)
	if !ok {
		return fmt.Errorf("adjust balance: %w", errNoUnit)
	}
	if _, mine := u.held[id]; !mine {
		return fmt.Errorf("adjust balance: wallet %s is not locked", id)
	}

	r.store.mu.RLock()
	w, exists := r.store.wallets[id]
	var balance domain.Money
	if exists {
		balance = w.Balance
	}
	r.store.mu.RUnlock()

	if !exists {
		return fmt.Errorf("wallet not found: %s", id)
	}
	if balance+u.deltas[id]+delta < 0 {
		return fmt.Errorf("adjust balance: %w", ports.ErrBalanceConstraint)
	}
	u.deltas[id] += delta
	return nil
}

// SumActiveBalances reads every customer wallet under the store read lock.
// Commits take the write lock, so the sum never sees half a transfer.
func (r *WalletRepo) SumActiveBalances(_ context.Context) (*ports.LiabilitySummary, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	s := &ports.LiabilitySummary{}
	for _, w := range r.store.wallets {
		if w.IsLiability() {
			s.Total += w.Balance
			s.ActiveWallets++
		}
	}
	return s, nil
}

// SetStatus activates or deactivates a wallet. Used by operator tooling.
func (r *WalletRepo) SetStatus(_ context.Context, id uuid.UUID, status domain.WalletStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w, ok := r.store.wallets[id]
	if !ok {
		return fmt.Errorf("wallet not found: %s", id)
	}
	w.Status = status
	return nil
}
