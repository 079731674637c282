package memory

import (
	"context"
	"sort"
	"time"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"

	"github.com/google/uuid"
)

// SnapshotRepo implements ports.SnapshotRepository.
type SnapshotRepo struct {
	store *Store
}

// NewSnapshotRepo creates a new SnapshotRepo.
func NewSnapshotRepo(store *Store) *SnapshotRepo {
	return &SnapshotRepo{store: store}
}

func (r *SnapshotRepo) Upsert(_ context.Context, s *domain.TrustAccountSnapshot) error {
	date := domain.NormalizeDate(s.Date)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cp := copySnapshot(s)
	cp.Date = date
	if existing, ok := r.store.snapshots[date]; ok {
		cp.CreatedAt = existing.CreatedAt
	}
	r.store.snapshots[date] = cp
	return nil
}

func (r *SnapshotRepo) GetByDate(_ context.Context, date time.Time) (*domain.TrustAccountSnapshot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	s, ok := r.store.snapshots[domain.NormalizeDate(date)]
	if !ok {
		return nil, nil
	}
	return copySnapshot(s), nil
}

func (r *SnapshotRepo) List(_ context.Context, from, to time.Time) ([]domain.TrustAccountSnapshot, error) {
	from, to = domain.NormalizeDate(from), domain.NormalizeDate(to)

	r.store.mu.RLock()
	var out []domain.TrustAccountSnapshot
	for date, s := range r.store.snapshots {
		if !date.Before(from) && !date.After(to) {
			out = append(out, *copySnapshot(s))
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r *SnapshotRepo) MarkResolved(_ context.Context, date time.Time, by uuid.UUID, notes string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	s, ok := r.store.snapshots[domain.NormalizeDate(date)]
	if !ok || s.Status != domain.SnapshotStatusDiscrepancy || s.IsResolved() {
		return ports.ErrNotFound
	}
	s.ResolvedAt = &at
	s.ResolvedBy = &by
	s.ResolutionNotes = notes
	s.UpdatedAt = at
	return nil
}

func copySnapshot(s *domain.TrustAccountSnapshot) *domain.TrustAccountSnapshot {
	cp := *s
	if s.ResolvedAt != nil {
		at := *s.ResolvedAt
		cp.ResolvedAt = &at
	}
	if s.ResolvedBy != nil {
		by := *s.ResolvedBy
		cp.ResolvedBy = &by
	}
	return &cp
}
