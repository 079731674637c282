package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const snapshotColumnList = `snapshot_date, closing_balance_minor, liabilities_minor, discrepancy_minor,
	status, active_wallets, reconciled_by, notes, resolved_at, resolved_by, resolution_notes,
	created_at, updated_at`

// SnapshotRepo implements ports.SnapshotRepository.
type SnapshotRepo struct {
	pool Pool
}

// NewSnapshotRepo creates a new SnapshotRepo.
func NewSnapshotRepo(pool Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

// Upsert writes the snapshot for its date. A re-run replaces every computed
// field and clears any earlier resolution; created_at is kept.
func (r *SnapshotRepo) Upsert(ctx context.Context, s *domain.TrustAccountSnapshot) error {
	query := `INSERT INTO trust_account_snapshots (` + snapshotColumnList + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (snapshot_date) DO UPDATE SET
			closing_balance_minor = EXCLUDED.closing_balance_minor,
			liabilities_minor = EXCLUDED.liabilities_minor,
			discrepancy_minor = EXCLUDED.discrepancy_minor,
			status = EXCLUDED.status,
			active_wallets = EXCLUDED.active_wallets,
			reconciled_by = EXCLUDED.reconciled_by,
			notes = EXCLUDED.notes,
			resolved_at = EXCLUDED.resolved_at,
			resolved_by = EXCLUDED.resolved_by,
			resolution_notes = EXCLUDED.resolution_notes,
			updated_at = EXCLUDED.updated_at`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		s.Date, s.ClosingBalance, s.Liabilities, s.Discrepancy,
		s.Status, s.ActiveWallets, s.ReconciledBy, nullString(s.Notes),
		s.ResolvedAt, s.ResolvedBy, nullString(s.ResolutionNotes),
		s.CreatedAt, s.UpdatedAt,
	)
	return mapError("upsert snapshot", err)
}

// GetByDate fetches the snapshot for date.
func (r *SnapshotRepo) GetByDate(ctx context.Context, date time.Time) (*domain.TrustAccountSnapshot, error) {
	query := `SELECT ` + snapshotColumnList + ` FROM trust_account_snapshots WHERE snapshot_date = $1`

	s, err := scanSnapshot(conn(ctx, r.pool).QueryRow(ctx, query, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError("get snapshot", err)
	}
	return s, nil
}

// List returns snapshots in [from, to], newest first.
func (r *SnapshotRepo) List(ctx context.Context, from, to time.Time) ([]domain.TrustAccountSnapshot, error) {
	query := `SELECT ` + snapshotColumnList + ` FROM trust_account_snapshots
		WHERE snapshot_date BETWEEN $1 AND $2 ORDER BY snapshot_date DESC`

	rows, err := conn(ctx, r.pool).Query(ctx, query, from, to)
	if err != nil {
		return nil, mapError("list snapshots", err)
	}
	defer rows.Close()

	var snapshots []domain.TrustAccountSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snapshots = append(snapshots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snapshots, nil
}

// MarkResolved signs off an unresolved discrepancy snapshot.
func (r *SnapshotRepo) MarkResolved(ctx context.Context, date time.Time, by uuid.UUID, notes string, at time.Time) error {
	query := `UPDATE trust_account_snapshots
		SET resolved_at = $2, resolved_by = $3, resolution_notes = $4, updated_at = $2
		WHERE snapshot_date = $1 AND status = $5 AND resolved_at IS NULL`

	tag, err := conn(ctx, r.pool).Exec(ctx, query, date, at, by, notes, domain.SnapshotStatusDiscrepancy)
	if err != nil {
		return mapError("resolve snapshot", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func scanSnapshot(row pgx.Row) (*domain.TrustAccountSnapshot, error) {
	s := &domain.TrustAccountSnapshot{}
	var notes, resolutionNotes *string
	err := row.Scan(
		&s.Date, &s.ClosingBalance, &s.Liabilities, &s.Discrepancy,
		&s.Status, &s.ActiveWallets, &s.ReconciledBy, &notes,
		&s.ResolvedAt, &s.ResolvedBy, &resolutionNotes,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if notes != nil {
		s.Notes = *notes
	}
	if resolutionNotes != nil {
		s.ResolutionNotes = *resolutionNotes
	}
	s.Date = domain.NormalizeDate(s.Date)
	return s, nil
}
