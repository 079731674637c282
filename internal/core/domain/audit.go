package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionScaVerify          AuditAction = "SCA_VERIFY"
	AuditActionScaIssue           AuditAction = "SCA_ISSUE"
	AuditActionTransfer           AuditAction = "TRANSFER"
	AuditActionReconcile          AuditAction = "RECONCILE"
	AuditActionDiscrepancyAlert   AuditAction = "DISCREPANCY_ALERT"
	AuditActionResolveDiscrepancy AuditAction = "RESOLVE_DISCREPANCY"
)

type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "success"
	AuditOutcomeFailure AuditOutcome = "failure"
)

// AuditRecord is an append-only entry for a sensitive operation.
type AuditRecord struct {
	ID           uuid.UUID         `json:"id"`
	Action       AuditAction       `json:"action"`
	ActorID      uuid.UUID         `json:"actor_id"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id,omitempty"`
	Outcome      AuditOutcome      `json:"outcome"`
	Details      map[string]string `json:"details,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
