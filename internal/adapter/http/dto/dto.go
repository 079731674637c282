package dto

import "emoney-core/internal/core/domain"

// ScaVerifyRequest is the body of POST /api/v1/sca/verify.
type ScaVerifyRequest struct {
	Method    string            `json:"method" binding:"required,oneof=pin biometric"`
	PIN       string            `json:"pin,omitempty" binding:"omitempty,len=4,numeric"`
	Assertion string            `json:"assertion,omitempty" binding:"max=4096"`
	Context   map[string]string `json:"context,omitempty"`
}

// ScaTokenResponse is returned once per issued token.
type ScaTokenResponse struct {
	Token     string `json:"authorization_token"`
	ExpiresAt string `json:"expires_at"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// ScaTokenInfo describes a live token without revealing it again.
type ScaTokenInfo struct {
	Method           string            `json:"method"`
	Context          map[string]string `json:"context,omitempty"`
	ExpiresAt        string            `json:"expires_at"`
	RemainingSeconds int               `json:"remaining_seconds"`
}

// TransferRequest is the legacy body of POST /api/v1/transfers.
type TransferRequest struct {
	FromWalletID       string `json:"from_wallet_id" binding:"required,uuid"`
	ToWalletID         string `json:"to_wallet_id" binding:"required,uuid"`
	Amount             string `json:"amount" binding:"required,money"`
	IdempotencyKey     string `json:"idempotency_key" binding:"omitempty,max=255"`
	AuthorizationToken string `json:"authorization_token,omitempty"`
	Note               string `json:"note,omitempty" binding:"max=140"`
}

// GroupContributionRequest is the body of POST /api/v1/groups/:groupId/contributions.
type GroupContributionRequest struct {
	FromWalletID       string `json:"from_wallet_id" binding:"required,uuid"`
	GroupWalletID      string `json:"group_wallet_id" binding:"required,uuid"`
	Amount             string `json:"amount" binding:"required,money"`
	IdempotencyKey     string `json:"idempotency_key" binding:"required,max=128"`
	AuthorizationToken string `json:"authorization_token,omitempty"`
}

// SplitBillSettlementRequest is the body of POST /api/v1/split-bills/:billId/settlements.
type SplitBillSettlementRequest struct {
	FromWalletID       string `json:"from_wallet_id" binding:"required,uuid"`
	CreatorWalletID    string `json:"creator_wallet_id" binding:"required,uuid"`
	Amount             string `json:"amount" binding:"required,money"`
	IdempotencyKey     string `json:"idempotency_key" binding:"required,max=128"`
	AuthorizationToken string `json:"authorization_token,omitempty"`
}

// VoucherRedemptionRequest is sent by the voucher service once it has
// validated the code.
type VoucherRedemptionRequest struct {
	UserID             string `json:"user_id" binding:"required,uuid"`
	VoucherCode        string `json:"voucher_code" binding:"required,safe_id,max=64"`
	ToWalletID         string `json:"to_wallet_id" binding:"required,uuid"`
	Amount             string `json:"amount" binding:"required,money"`
	AuthorizationToken string `json:"authorization_token" binding:"required"`
}

// FundingRequest credits a wallet against a cleared custodian deposit.
type FundingRequest struct {
	DepositReference string `json:"deposit_reference" binding:"required,safe_id,max=64"`
	ToWalletID       string `json:"to_wallet_id" binding:"required,uuid"`
	Amount           string `json:"amount" binding:"required,money"`
}

// TransactionResponse is the legacy representation of a transaction.
type TransactionResponse struct {
	ID             string            `json:"id"`
	IdempotencyKey string            `json:"idempotency_key"`
	FromWalletID   string            `json:"from_wallet_id"`
	ToWalletID     string            `json:"to_wallet_id"`
	Amount         domain.Money      `json:"amount"`
	Kind           string            `json:"kind"`
	Status         string            `json:"status"`
	FailureReason  string            `json:"failure_reason,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      string            `json:"created_at"`
	CompletedAt    *string           `json:"completed_at,omitempty"`
}

// RunReconciliationRequest is the body of POST /api/v1/admin/reconciliations.
type RunReconciliationRequest struct {
	Date         string `json:"date" binding:"required,datetime=2006-01-02"`
	TrustBalance string `json:"trust_balance" binding:"required,money_nonneg"`
	Notes        string `json:"notes,omitempty" binding:"max=1000"`
}

// ResolveDiscrepancyRequest is the body of POST .../reconciliations/:date/resolve.
type ResolveDiscrepancyRequest struct {
	Notes string `json:"notes" binding:"required,max=1000"`
}

// ReconciliationResponse is one snapshot with derived figures.
type ReconciliationResponse struct {
	Date            string       `json:"date"`
	Status          string       `json:"status"`
	ClosingBalance  domain.Money `json:"closing_balance"`
	Liabilities     domain.Money `json:"e_money_liabilities"`
	Discrepancy     domain.Money `json:"discrepancy"`
	CoveragePercent string       `json:"coverage_percent"`
	ActiveWallets   int64        `json:"active_wallets"`
	ReconciledBy    string       `json:"reconciled_by"`
	Notes           string       `json:"notes,omitempty"`
	ResolvedAt      *string      `json:"resolved_at,omitempty"`
	ResolvedBy      *string      `json:"resolved_by,omitempty"`
	ResolutionNotes string       `json:"resolution_notes,omitempty"`
	UpdatedAt       string       `json:"updated_at"`
}

// ReconciliationListResponse wraps a date range of snapshots.
type ReconciliationListResponse struct {
	Items []ReconciliationResponse `json:"items"`
	From  string                   `json:"from"`
	To    string                   `json:"to"`
}
