package domain

import (
	"time"

	"github.com/google/uuid"
)

type WalletKind string

const (
	WalletKindCustomer WalletKind = "customer"
	WalletKindTrust    WalletKind = "trust"
)

type WalletStatus string

const (
	WalletStatusActive   WalletStatus = "active"
	WalletStatusInactive WalletStatus = "inactive"
)

// Wallet is a ledger account. Customer wallets are e-money liabilities; the
// trust wallet mirrors the custodial bank account and is owned by SystemActorID.
type Wallet struct {
	ID        uuid.UUID    `json:"id"`
	OwnerID   uuid.UUID    `json:"owner_id"`
	Kind      WalletKind   `json:"kind"`
	Balance   Money        `json:"balance"`
	Status    WalletStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}

// IsLiability reports whether the balance counts towards customer liabilities.
func (w *Wallet) IsLiability() bool {
	return w.Kind == WalletKindCustomer && w.IsActive()
}

// CanCover reports whether the balance can fund amount without going negative.
func (w *Wallet) CanCover(amount Money) bool {
	return w.Balance >= amount
}
