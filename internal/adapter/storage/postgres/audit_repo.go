package postgres

import (
	"context"

	"emoney-core/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository. Rows are insert-only.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a PostgreSQL-backed audit repository.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Create(ctx context.Context, rec *domain.AuditRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, action, actor_id, resource_type, resource_id, outcome, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Action, rec.ActorID, rec.ResourceType,
		nullString(rec.ResourceID), rec.Outcome, rec.Details, rec.CreatedAt,
	)
	return mapError("insert audit record", err)
}
