package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"
	"emoney-core/pkg/apperror"

	"github.com/google/uuid"
)

// MoneyMovementServiceImpl implements ports.MoneyMovementService. Each feature
// only picks accounts, kind and metadata; the transfer semantics all come
// from ports.TransferService.
type MoneyMovementServiceImpl struct {
	transfers    ports.TransferService
	walletRepo   ports.WalletRepository
	trustAccount uuid.UUID
}

// NewMoneyMovementService creates a new MoneyMovementServiceImpl. trustAccount
// is the ledger account mirroring the custodial bank account.
func NewMoneyMovementService(transfers ports.TransferService, walletRepo ports.WalletRepository, trustAccount uuid.UUID) *MoneyMovementServiceImpl {
	return &MoneyMovementServiceImpl{
		transfers:    transfers,
		walletRepo:   walletRepo,
		trustAccount: trustAccount,
	}
}

// PayPeer sends money from one user's wallet to another wallet.
func (s *MoneyMovementServiceImpl) PayPeer(ctx context.Context, req ports.PeerPaymentRequest) (*domain.Transaction, error) {
	meta := map[string]string{}
	if note := strings.TrimSpace(req.Note); note != "" {
		meta["note"] = note
	}
	return s.transfers.Transfer(ctx, ports.TransferRequest{
		ActorID:            req.ActorID,
		FromAccount:        req.FromWallet,
		ToAccount:          req.ToWallet,
		Amount:             req.Amount,
		IdempotencyKey:     req.IdempotencyKey,
		AuthorizationToken: req.AuthorizationToken,
		Kind:               domain.TransactionKindPeerPayment,
		Metadata:           meta,
	})
}

// ContributeToGroup moves money into a group's pooled wallet.
func (s *MoneyMovementServiceImpl) ContributeToGroup(ctx context.Context, req ports.GroupContributionRequest) (*domain.Transaction, error) {
	if req.GroupID == "" {
		return nil, apperror.Validation("group id is required")
	}
	return s.transfers.Transfer(ctx, ports.TransferRequest{
		ActorID:            req.ActorID,
		FromAccount:        req.FromWallet,
		ToAccount:          req.GroupWallet,
		Amount:             req.Amount,
		IdempotencyKey:     scopedKey(domain.TransactionKindGroupContribution, req.GroupID, req.IdempotencyKey),
		AuthorizationToken: req.AuthorizationToken,
		Kind:               domain.TransactionKindGroupContribution,
		Metadata:           map[string]string{"group_id": req.GroupID},
	})
}

// SettleSplitBill pays one participant's share to the bill creator.
func (s *MoneyMovementServiceImpl) SettleSplitBill(ctx context.Context, req ports.SplitBillSettlementRequest) (*domain.Transaction, error) {
	if req.BillID == "" {
		return nil, apperror.Validation("bill id is required")
	}
	return s.transfers.Transfer(ctx, ports.TransferRequest{
		ActorID:            req.ActorID,
		FromAccount:        req.FromWallet,
		ToAccount:          req.CreatorWallet,
		Amount:             req.Amount,
		IdempotencyKey:     scopedKey(domain.TransactionKindSplitBill, req.BillID, req.IdempotencyKey),
		AuthorizationToken: req.AuthorizationToken,
		Kind:               domain.TransactionKindSplitBill,
		Metadata:           map[string]string{"bill_id": req.BillID},
	})
}

// RedeemVoucher credits the user's wallet from the trust account. The voucher
// code is the idempotency key, so a voucher pays out at most once. The user
// must have stepped up; their token is consumed.
func (s *MoneyMovementServiceImpl) RedeemVoucher(ctx context.Context, req ports.VoucherRedemptionRequest) (*domain.Transaction, error) {
	code := strings.TrimSpace(req.VoucherCode)
	if code == "" {
		return nil, apperror.Validation("voucher code is required")
	}
	if err := s.requireOwnedWallet(ctx, req.ToWallet, req.UserID); err != nil {
		return nil, err
	}

	txn, err := s.transfers.Transfer(ctx, ports.TransferRequest{
		ActorID:              domain.SystemActorID,
		FromAccount:          s.trustAccount,
		ToAccount:            req.ToWallet,
		Amount:               req.Amount,
		IdempotencyKey:       scopedKey(domain.TransactionKindVoucherRedemption, code, "redeem"),
		AuthorizationToken:   req.AuthorizationToken,
		RequireAuthorization: true,
		AuthorizingUser:      req.UserID,
		Kind:                 domain.TransactionKindVoucherRedemption,
		Metadata: map[string]string{
			"voucher_code": code,
			"user_id":      req.UserID.String(),
		},
	})
	if errors.Is(err, apperror.ErrKeyReused) {
		return nil, apperror.ErrInvalidStateTransition("voucher has already been redeemed")
	}
	return txn, err
}

// FundWallet issues e-money against a cleared custodian deposit. One deposit
// reference funds at most once.
func (s *MoneyMovementServiceImpl) FundWallet(ctx context.Context, req ports.FundingRequest) (*domain.Transaction, error) {
	ref := strings.TrimSpace(req.DepositReference)
	if ref == "" {
		return nil, apperror.Validation("deposit reference is required")
	}
	txn, err := s.transfers.Transfer(ctx, ports.TransferRequest{
		ActorID:        domain.SystemActorID,
		FromAccount:    s.trustAccount,
		ToAccount:      req.ToWallet,
		Amount:         req.Amount,
		IdempotencyKey: scopedKey(domain.TransactionKindFunding, ref, "credit"),
		Kind:           domain.TransactionKindFunding,
		Metadata: map[string]string{
			"deposit_reference": ref,
			"requested_by":      req.RequestedBy.String(),
		},
	})
	if errors.Is(err, apperror.ErrKeyReused) {
		return nil, apperror.ErrInvalidStateTransition("deposit reference has already funded a different transfer")
	}
	return txn, err
}

func (s *MoneyMovementServiceImpl) requireOwnedWallet(ctx context.Context, walletID, owner uuid.UUID) error {
	w, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("get wallet: %w", err))
	}
	if w == nil || !w.IsActive() || w.OwnerID != owner || w.Kind != domain.WalletKindCustomer {
		return apperror.ErrAccountNotFoundOrInactive()
	}
	return nil
}

// scopedKey leaves an empty caller key empty so the engine still rejects it.
func scopedKey(kind domain.TransactionKind, parent, key string) string {
	key = domain.NormalizeIdempotencyKey(key)
	if key == "" {
		return ""
	}
	return domain.DeriveIdempotencyKey(kind, parent, key)
}
