package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionKind labels which feature moved the money. It never changes
// transfer semantics.
type TransactionKind string

const (
	TransactionKindTransfer          TransactionKind = "transfer"
	TransactionKindPeerPayment       TransactionKind = "peer_payment"
	TransactionKindGroupContribution TransactionKind = "group_contribution"
	TransactionKindSplitBill         TransactionKind = "split_bill"
	TransactionKindVoucherRedemption TransactionKind = "voucher_redemption"
	TransactionKindFunding           TransactionKind = "funding"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Failure reasons recorded on failed transactions.
const (
	FailureInsufficientFunds = "insufficient_funds"
	FailureAccountInactive   = "account_inactive"
	FailureConflict          = "conflict"
	FailureTimeout           = "timeout"
	FailureStorage           = "storage"
)

// Transaction is one row per logical transfer attempt, keyed by its idempotency key.
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	IdempotencyKey string            `json:"idempotency_key"`
	FromAccount    uuid.UUID         `json:"from_account"`
	ToAccount      uuid.UUID         `json:"to_account"`
	Amount         Money             `json:"amount"`
	Kind           TransactionKind   `json:"kind"`
	Status         TransactionStatus `json:"status"`
	FailureReason  string            `json:"failure_reason,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	InitiatedBy    uuid.UUID         `json:"initiated_by"`
	CreatedAt      time.Time         `json:"created_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted ||
		t.Status == TransactionStatusFailed
}

func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}
