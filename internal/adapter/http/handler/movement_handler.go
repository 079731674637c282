package handler

import (
	"emoney-core/internal/adapter/http/dto"
	"emoney-core/internal/adapter/http/middleware"
	"emoney-core/internal/adapter/http/presenter"
	"emoney-core/internal/core/ports"
	"emoney-core/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// MovementHandler serves the product features that move money through the
// transfer engine.
type MovementHandler struct {
	movements ports.MoneyMovementService
	out       presenter.Legacy
}

// NewMovementHandler creates a new MovementHandler.
func NewMovementHandler(movements ports.MoneyMovementService) *MovementHandler {
	return &MovementHandler{movements: movements}
}

// ContributeToGroup handles POST /api/v1/groups/:groupId/contributions.
func (h *MovementHandler) ContributeToGroup(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.out.Error(c, apperror.ErrAuthenticationRequired())
		return
	}

	var req dto.GroupContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.out.Error(c, apperror.Validation(err.Error()))
		return
	}
	from, err := parseID("from_wallet_id", req.FromWalletID)
	if err != nil {
		h.out.Error(c, err)
		return
	}
	group, err := parseID("group_wallet_id", req.GroupWalletID)
	if err != nil {
		h.out.Error(c, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.out.Error(c, err)
		return
	}

	txn, err := h.movements.ContributeToGroup(c.Request.Context(), ports.GroupContributionRequest{
		ActorID:            userID,
		GroupID:            c.Param("groupId"),
		FromWallet:         from,
		GroupWallet:        group,
		Amount:             amount,
		IdempotencyKey:     req.IdempotencyKey,
		AuthorizationToken: firstNonEmpty(req.AuthorizationToken, c.GetHeader(HeaderAuthorizationToken)),
	})
	if err != nil {
		h.out.Error(c, err)
		return
	}
	h.out.Transaction(c, txn)
}

// SettleSplitBill handles POST /api/v1/split-bills/:billId/settlements.
func (h *MovementHandler) SettleSplitBill(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.out.Error(c, apperror.ErrAuthenticationRequired())
		return
	}

	var req dto.SplitBillSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.out.Error(c, apperror.Validation(err.Error()))
		return
	}
	from, err := parseID("from_wallet_id", req.FromWalletID)
	if err != nil {
		h.out.Error(c, err)
		return
	}
	creator, err := parseID("creator_wallet_id", req.CreatorWalletID)
	if err != nil {
		h.out.Error(c, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.out.Error(c, err)
		return
	}

	txn, err := h.movements.SettleSplitBill(c.Request.Context(), ports.SplitBillSettlementRequest{
		ActorID:            userID,
		BillID:             c.Param("billId"),
		FromWallet:         from,
		CreatorWallet:      creator,
		Amount:             amount,
		IdempotencyKey:     req.IdempotencyKey,
		AuthorizationToken: firstNonEmpty(req.AuthorizationToken, c.GetHeader(HeaderAuthorizationToken)),
	})
	if err != nil {
		h.out.Error(c, err)
		return
	}
	h.out.Transaction(c, txn)
}

// RedeemVoucher handles POST /internal/v1/vouchers/redeem. Only the voucher
// service calls it; the customer's SCA token travels in the body.
func (h *MovementHandler) RedeemVoucher(c *gin.Context) {
	var req dto.VoucherRedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.out.Error(c, apperror.Validation(err.Error()))
		return
	}
	user, err := parseID("user_id", req.UserID)
	if err != nil {
		h.out.Error(c, err)
		return
	}
	to, err := parseID("to_wallet_id", req.ToWalletID)
	if err != nil {
		h.out.Error(c, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.out.Error(c, err)
		return
	}

	txn, err := h.movements.RedeemVoucher(c.Request.Context(), ports.VoucherRedemptionRequest{
		UserID:             user,
		VoucherCode:        req.VoucherCode,
		ToWallet:           to,
		Amount:             amount,
		AuthorizationToken: req.AuthorizationToken,
	})
	if err != nil {
		h.out.Error(c, err)
		return
	}
	h.out.Transaction(c, txn)
}

// FundWallet handles POST /api/v1/admin/fundings.
func (h *MovementHandler) FundWallet(c *gin.Context) {
	callerID, ok := middleware.UserID(c)
	if !ok {
		h.out.Error(c, apperror.ErrAuthenticationRequired())
		return
	}

	var req dto.FundingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.out.Error(c, apperror.Validation(err.Error()))
		return
	}
	to, err := parseID("to_wallet_id", req.ToWalletID)
	if err != nil {
		h.out.Error(c, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.out.Error(c, err)
		return
	}

	txn, err := h.movements.FundWallet(c.Request.Context(), ports.FundingRequest{
		DepositReference: req.DepositReference,
		ToWallet:         to,
		Amount:           amount,
		RequestedBy:      callerID,
	})
	if err != nil {
		h.out.Error(c, err)
		return
	}
	h.out.Transaction(c, txn)
}
