package presenter

import (
	"errors"
	"net/http"
	"time"

	"emoney-core/internal/adapter/http/dto"
	"emoney-core/internal/core/domain"
	"emoney-core/pkg/apperror"
	"emoney-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Open Banking error codes.
const (
	OBFieldMissing       = "BUFFR.Field.Missing"
	OBFieldInvalid       = "BUFFR.Field.Invalid"
	OBAmountInvalid      = "BUFFR.Amount.Invalid"
	OBAccountNotFound    = "BUFFR.Account.NotFound"
	OBPaymentRejected    = "BUFFR.Payment.Rejected"
	OBInsufficientFunds  = "BUFFR.Funds.Insufficient"
	OBUnauthorized       = "BUFFR.Auth.Unauthorized"
	OBTokenInvalid       = "BUFFR.Auth.TokenInvalid"
	OBTokenExpired       = "BUFFR.Auth.TokenExpired"
	OBSCARequired        = "BUFFR.Auth.SCARequired"
	OBResourceNotFound   = "BUFFR.Resource.NotFound"
	OBResourceConflict   = "BUFFR.Resource.Conflict"
	OBServerError        = "BUFFR.Server.Error"
	OBServiceUnavailable = "BUFFR.Server.Unavailable"
	OBTimeout            = "BUFFR.Server.Timeout"
)

// Payment statuses.
const (
	OBStatusCompleted = "AcceptedSettlementCompleted"
	OBStatusRejected  = "Rejected"
)

// obCodes maps core error codes to Open Banking codes.
var obCodes = map[string]string{
	"AUTH_001": OBUnauthorized,
	"AUTH_002": OBUnauthorized,
	"AUTH_003": OBSCARequired,
	"AUTH_004": OBTokenExpired,
	"AUTH_005": OBTokenInvalid,
	"AUTH_006": OBUnauthorized,
	"PAY_001":  OBInsufficientFunds,
	"PAY_002":  OBFieldInvalid,
	"PAY_003":  OBAccountNotFound,
	"PAY_004":  OBResourceNotFound,
	"PAY_005":  OBResourceConflict,
	"SYS_001":  OBServiceUnavailable,
	"SYS_002":  OBResourceConflict,
	"SYS_004":  OBTimeout,
}

// OpenBanking writes the {Data, Links, Meta} envelope.
type OpenBanking struct {
	// SelfPrefix is joined with the payment id to build Links.Self.
	SelfPrefix string
}

// Payment writes a transfer as an Open Banking payment resource.
func (p OpenBanking) Payment(c *gin.Context, txn *domain.Transaction, consentID string, initiation *dto.OBInitiation) {
	self := p.SelfPrefix + "/" + txn.ID.String()
	c.Header("Location", self)
	p.headers(c)
	c.JSON(http.StatusCreated, dto.OBResponse{
		Data:  PaymentData(txn, consentID, initiation),
		Links: dto.OBLinks{Self: self},
		Meta:  map[string]any{},
	})
}

// Error writes err in the Open Banking error envelope with the HTTP status
// of the underlying core error.
func (p OpenBanking) Error(c *gin.Context, err error) {
	appErr := response.AsAppError(err)
	code, ok := obCodes[appErr.Code]
	if !ok {
		code = OBServerError
	}
	if errors.Is(err, apperror.ErrAmount) {
		code = OBAmountInvalid
	}
	p.headers(c)
	c.JSON(appErr.HTTPStatus, dto.OBErrorResponse{
		Code:    code,
		ID:      uuid.NewString(),
		Message: appErr.Message,
		Errors:  []dto.OBErrorDetail{{ErrorCode: code, Message: appErr.Message}},
	})
}

// FieldErrors writes a 400 listing every missing or malformed field.
func (p OpenBanking) FieldErrors(c *gin.Context, details []dto.OBErrorDetail) {
	p.headers(c)
	c.JSON(http.StatusBadRequest, dto.OBErrorResponse{
		Code:    OBFieldMissing,
		ID:      uuid.NewString(),
		Message: "One or more required fields are missing or invalid",
		Errors:  details,
	})
}

func (OpenBanking) headers(c *gin.Context) {
	c.Header("x-fapi-interaction-id", response.RequestID(c))
}

// PaymentData converts a transaction into the Open Banking Data block.
func PaymentData(txn *domain.Transaction, consentID string, initiation *dto.OBInitiation) dto.OBPaymentResponseData {
	status := OBStatusCompleted
	if txn.Status != domain.TransactionStatusCompleted {
		status = OBStatusRejected
	}
	updated := txn.CreatedAt
	if txn.CompletedAt != nil {
		updated = *txn.CompletedAt
	}
	if consentID == "" {
		consentID = txn.ID.String()
	}
	return dto.OBPaymentResponseData{
		PaymentID:            txn.ID.String(),
		ConsentID:            consentID,
		Status:               status,
		CreationDateTime:     txn.CreatedAt.UTC().Format(time.RFC3339),
		StatusUpdateDateTime: updated.UTC().Format(time.RFC3339),
		Initiation:           initiation,
	}
}
