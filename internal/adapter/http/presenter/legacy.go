// Package presenter renders ledger results for the two public API shapes.
// Both presenters are stateless and sit over the same services.
package presenter

import (
	"time"

	"emoney-core/internal/adapter/http/dto"
	"emoney-core/internal/core/domain"
	"emoney-core/pkg/response"

	"github.com/gin-gonic/gin"
)

// Legacy writes the {data, request_id, timestamp} envelope.
type Legacy struct{}

// Transaction writes a completed transfer. An idempotent replay gets the
// same 201 body as the original call.
func (Legacy) Transaction(c *gin.Context, txn *domain.Transaction) {
	response.Created(c, TransactionResponse(txn))
}

// Error writes err in the legacy error envelope.
func (Legacy) Error(c *gin.Context, err error) {
	response.Error(c, err)
}

// TransactionResponse converts domain.Transaction to its legacy DTO.
func TransactionResponse(tx *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:             tx.ID.String(),
		IdempotencyKey: tx.IdempotencyKey,
		FromWalletID:   tx.FromAccount.String(),
		ToWalletID:     tx.ToAccount.String(),
		Amount:         tx.Amount,
		Kind:           string(tx.Kind),
		Status:         string(tx.Status),
		FailureReason:  tx.FailureReason,
		Metadata:       tx.Metadata,
		CreatedAt:      tx.CreatedAt.Format(time.RFC3339),
	}
	if tx.CompletedAt != nil {
		s := tx.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}
