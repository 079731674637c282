package memory

import (
	"context"

	"emoney-core/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository as an append-only slice.
type AuditRepo struct {
	store *Store
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(store *Store) *AuditRepo {
	return &AuditRepo{store: store}
}

func (r *AuditRepo) Create(_ context.Context, rec *domain.AuditRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.audit = append(r.store.audit, *rec)
	return nil
}

// Records returns a copy of everything appended so far.
func (r *AuditRepo) Records() []domain.AuditRecord {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]domain.AuditRecord, len(r.store.audit))
	copy(out, r.store.audit)
	return out
}
