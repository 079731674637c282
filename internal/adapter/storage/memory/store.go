// Package memory is a single-process storage backend. It keeps the same
// guarantees as the postgres adapter: per-wallet exclusive locks, atomic
// commit of a transfer, unique idempotency keys and non-negative balances.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"

	"github.com/google/uuid"
)

var errNoUnit = errors.New("no transaction in context")

// Store holds every table of the memory backend.
type Store struct {
	mu           sync.RWMutex
	wallets      map[uuid.UUID]*domain.Wallet
	transactions map[uuid.UUID]*domain.Transaction
	byKey        map[string]uuid.UUID
	snapshots    map[time.Time]*domain.TrustAccountSnapshot
	users        map[uuid.UUID]*domain.User
	audit        []domain.AuditRecord

	lockMu sync.Mutex
	locks  map[uuid.UUID]chan struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		wallets:      make(map[uuid.UUID]*domain.Wallet),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		byKey:        make(map[string]uuid.UUID),
		snapshots:    make(map[time.Time]*domain.TrustAccountSnapshot),
		users:        make(map[uuid.UUID]*domain.User),
		locks:        make(map[uuid.UUID]chan struct{}),
	}
}

// walletLock returns the exclusive lock for a wallet, creating it on first use.
func (s *Store) walletLock(id uuid.UUID) chan struct{} {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[id] = l
	}
	return l
}

// unit stages the writes of one WithinTx call until commit.
type unit struct {
	held   map[uuid.UUID]chan struct{}
	order  []uuid.UUID
	deltas map[uuid.UUID]domain.Money
	txns   []*domain.Transaction
}

type unitKey struct{}

func unitFrom(ctx context.Context) (*unit, bool) {
	u, ok := ctx.Value(unitKey{}).(*unit)
	return u, ok
}

func (u *unit) release() {
	for i := len(u.order) - 1; i >= 0; i-- {
		<-u.held[u.order[i]]
	}
	u.held, u.order = nil, nil
}

// Transactor implements ports.Transactor for the memory store.
type Transactor struct {
	store *Store
}

// NewTransactor creates a Transactor over store.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// WithinTx runs fn with a fresh unit of work and commits its staged writes
// under one store lock. Wallet locks taken by fn are released on return.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := unitFrom(ctx); ok {
		return fn(ctx)
	}

	u := &unit{
		held:   make(map[uuid.UUID]chan struct{}),
		deltas: make(map[uuid.UUID]domain.Money),
	}
	defer u.release()

	if err := fn(context.WithValue(ctx, unitKey{}, u)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.store.commit(u)
}

// commit re-validates the staged writes and applies them all or not at all.
func (s *Store) commit(u *unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range u.txns {
		if _, taken := s.byKey[tx.IdempotencyKey]; taken {
			return fmt.Errorf("commit transaction: %w", ports.ErrDuplicateKey)
		}
	}
	for id, delta := range u.deltas {
		w, ok := s.wallets[id]
		if !ok {
			return fmt.Errorf("commit: wallet not found: %s", id)
		}
		if w.Balance+delta < 0 {
			return fmt.Errorf("commit: %w", ports.ErrBalanceConstraint)
		}
	}

	now := time.Now().UTC()
	for id, delta := range u.deltas {
		w := s.wallets[id]
		w.Balance += delta
		w.UpdatedAt = now
	}
	for _, tx := range u.txns {
		s.insertTransaction(tx)
	}
	return nil
}

func (s *Store) insertTransaction(tx *domain.Transaction) {
	cp := copyTransaction(tx)
	s.transactions[cp.ID] = cp
	s.byKey[cp.IdempotencyKey] = cp.ID
}

func copyTransaction(tx *domain.Transaction) *domain.Transaction {
	cp := *tx
	if tx.Metadata != nil {
		cp.Metadata = make(map[string]string, len(tx.Metadata))
		for k, v := range tx.Metadata {
			cp.Metadata[k] = v
		}
	}
	if tx.CompletedAt != nil {
		at := *tx.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}
