package handler

import (
	"strings"

	"emoney-core/internal/adapter/http/dto"
	"emoney-core/internal/adapter/http/middleware"
	"emoney-core/internal/adapter/http/presenter"
	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"
	"emoney-core/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OBPaymentsPath is the Open Banking wallet-to-wallet resource.
const OBPaymentsPath = "/open-banking/v1/payments/wallet-to-wallet"

// TransferHandler serves the legacy and Open Banking transfer endpoints. Both
// run the same engine; only the presenter differs.
type TransferHandler struct {
	transfers ports.TransferService
	movements ports.MoneyMovementService
	currency  string
	legacy    presenter.Legacy
	ob        presenter.OpenBanking
}

// NewTransferHandler creates a new TransferHandler. currency is the only
// currency the ledger carries.
func NewTransferHandler(transfers ports.TransferService, movements ports.MoneyMovementService, currency string) *TransferHandler {
	return &TransferHandler{
		transfers: transfers,
		movements: movements,
		currency:  currency,
		ob:        presenter.OpenBanking{SelfPrefix: OBPaymentsPath},
	}
}

// Transfer handles POST /api/v1/transfers.
func (h *TransferHandler) Transfer(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.legacy.Error(c, apperror.ErrAuthenticationRequired())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.legacy.Error(c, apperror.Validation(err.Error()))
		return
	}

	from, err := parseID("from_wallet_id", req.FromWalletID)
	if err != nil {
		h.legacy.Error(c, err)
		return
	}
	to, err := parseID("to_wallet_id", req.ToWalletID)
	if err != nil {
		h.legacy.Error(c, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.legacy.Error(c, err)
		return
	}

	var meta map[string]string
	if note := strings.TrimSpace(req.Note); note != "" {
		meta = map[string]string{"note": note}
	}

	txn, err := h.transfers.Transfer(c.Request.Context(), ports.TransferRequest{
		ActorID:            userID,
		FromAccount:        from,
		ToAccount:          to,
		Amount:             amount,
		IdempotencyKey:     firstNonEmpty(req.IdempotencyKey, c.GetHeader(HeaderIdempotencyKey)),
		AuthorizationToken: firstNonEmpty(req.AuthorizationToken, c.GetHeader(HeaderAuthorizationToken)),
		Kind:               domain.TransactionKindTransfer,
		Metadata:           meta,
	})
	if err != nil {
		h.legacy.Error(c, err)
		return
	}
	h.legacy.Transaction(c, txn)
}

// OpenBankingPayment handles POST /open-banking/v1/payments/wallet-to-wallet.
func (h *TransferHandler) OpenBankingPayment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.ob.Error(c, apperror.ErrAuthenticationRequired())
		return
	}

	var req dto.OBPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ob.FieldErrors(c, []dto.OBErrorDetail{{
			ErrorCode: presenter.OBFieldInvalid,
			Message:   "Request body is not valid JSON",
		}})
		return
	}

	pay, details := h.readInitiation(&req)
	if len(details) > 0 {
		h.ob.FieldErrors(c, details)
		return
	}

	initiation := req.Data.Initiation
	pay.ActorID = userID
	pay.IdempotencyKey = firstNonEmpty(c.GetHeader(HeaderOBIdempotencyKey), initiation.InstructionIdentification)
	pay.AuthorizationToken = firstNonEmpty(req.VerificationToken, c.GetHeader(HeaderAuthorizationToken))
	if initiation.RemittanceInformation != nil {
		pay.Note = initiation.RemittanceInformation.Unstructured
	}

	txn, err := h.movements.PayPeer(c.Request.Context(), pay)
	if err != nil {
		h.ob.Error(c, err)
		return
	}
	h.ob.Payment(c, txn, req.Data.ConsentID, initiation)
}

// readInitiation collects every missing or malformed field rather than
// stopping at the first.
func (h *TransferHandler) readInitiation(req *dto.OBPaymentRequest) (ports.PeerPaymentRequest, []dto.OBErrorDetail) {
	var pay ports.PeerPaymentRequest
	var details []dto.OBErrorDetail
	missing := func(path string) {
		details = append(details, dto.OBErrorDetail{
			ErrorCode: presenter.OBFieldMissing,
			Message:   "The field " + path[strings.LastIndex(path, ".")+1:] + " is missing",
			Path:      path,
		})
	}
	invalid := func(code, path, msg string) {
		details = append(details, dto.OBErrorDetail{ErrorCode: code, Message: msg, Path: path})
	}

	if req.Data == nil || req.Data.Initiation == nil {
		missing("Data.Initiation")
		return pay, details
	}
	initiation := req.Data.Initiation

	switch {
	case initiation.InstructedAmount == nil || initiation.InstructedAmount.Amount == "":
		missing("Data.Initiation.InstructedAmount.Amount")
	default:
		amount, err := parseAmount(initiation.InstructedAmount.Amount)
		if err != nil {
			invalid(presenter.OBAmountInvalid, "Data.Initiation.InstructedAmount.Amount", "Invalid amount")
		}
		pay.Amount = amount
		if cur := initiation.InstructedAmount.Currency; cur != "" && h.currency != "" && !strings.EqualFold(cur, h.currency) {
			invalid(presenter.OBFieldInvalid, "Data.Initiation.InstructedAmount.Currency", "Only "+h.currency+" is supported")
		}
	}

	pay.FromWallet = h.readAccount(initiation.DebtorAccount, "Data.Initiation.DebtorAccount.Identification", missing, invalid)
	pay.ToWallet = h.readAccount(initiation.CreditorAccount, "Data.Initiation.CreditorAccount.Identification", missing, invalid)
	return pay, details
}

func (h *TransferHandler) readAccount(acc *dto.OBAccount, path string, missing func(string), invalid func(code, path, msg string)) uuid.UUID {
	if acc == nil || acc.Identification == "" {
		missing(path)
		return uuid.Nil
	}
	id, err := uuid.Parse(acc.Identification)
	if err != nil {
		invalid(presenter.OBFieldInvalid, path, "Account identification must be a wallet id")
	}
	return id
}
