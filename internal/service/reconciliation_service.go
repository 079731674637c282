package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"emoney-core/internal/core/domain"
	"emoney-core/internal/core/ports"
	"emoney-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultAlertTimeout = 10 * time.Second

// ReconciliationServiceImpl implements ports.ReconciliationService.
type ReconciliationServiceImpl struct {
	snapshots    ports.SnapshotRepository
	walletRepo   ports.WalletRepository
	alerts       ports.AlertNotifier
	audit        ports.AuditWriter
	alertTimeout time.Duration
	log          zerolog.Logger

	now      func() time.Time
	inflight sync.WaitGroup
}

// NewReconciliationService creates a new ReconciliationServiceImpl.
func NewReconciliationService(
	snapshots ports.SnapshotRepository,
	walletRepo ports.WalletRepository,
	alerts ports.AlertNotifier,
	audit ports.AuditWriter,
	alertTimeout time.Duration,
	log zerolog.Logger,
) *ReconciliationServiceImpl {
	if alertTimeout <= 0 {
		alertTimeout = defaultAlertTimeout
	}
	return &ReconciliationServiceImpl{
		snapshots:    snapshots,
		walletRepo:   walletRepo,
		alerts:       alerts,
		audit:        audit,
		alertTimeout: alertTimeout,
		log:          log,
		now:          time.Now,
	}
}

// Run reconciles customer liabilities against the custodian-reported trust
// balance for req.Date. Re-running a date overwrites its snapshot, passing
// through pending again.
func (s *ReconciliationServiceImpl) Run(ctx context.Context, req ports.RunReconciliationRequest) (*ports.ReconciliationResult, error) {
	if req.Date.IsZero() {
		return nil, apperror.Validation("date is required")
	}
	if req.ReportedTrustBalance < 0 {
		return nil, apperror.Validation("reported trust balance must not be negative")
	}
	by := req.ReconciledBy
	if by == uuid.Nil {
		by = domain.SystemActorID
	}

	date := domain.NormalizeDate(req.Date)
	log := s.log.With().Str("date", date.Format(domain.DateLayout)).Logger()

	now := s.now().UTC()
	snapshot := &domain.TrustAccountSnapshot{
		Date:           date,
		ClosingBalance: req.ReportedTrustBalance,
		Status:         domain.SnapshotStatusPending,
		ReconciledBy:   by,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.snapshots.Upsert(ctx, snapshot); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("upsert pending snapshot: %w", err))
	}

	// One aggregate read; individual wallets are not locked.
	summary, err := s.walletRepo.SumActiveBalances(ctx)
	if err != nil {
		log.Error().Err(err).Msg("liabilities query failed, snapshot left pending")
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("sum liabilities: %w", err))
	}

	snapshot.Settle(summary.Total, summary.ActiveWallets)
	snapshot.UpdatedAt = s.now().UTC()
	if err := s.snapshots.Upsert(ctx, snapshot); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("upsert snapshot: %w", err))
	}

	result := toResult(snapshot)

	s.audit.Append(ctx, &domain.AuditRecord{
		Action:       domain.AuditActionReconcile,
		ActorID:      by,
		ResourceType: "trust_account_snapshot",
		ResourceID:   date.Format(domain.DateLayout),
		Outcome:      domain.AuditOutcomeSuccess,
		Details: map[string]string{
			"status":          string(snapshot.Status),
			"closing_balance": snapshot.ClosingBalance.String(),
			"liabilities":     snapshot.Liabilities.String(),
			"discrepancy":     snapshot.Discrepancy.String(),
		},
	})

	if snapshot.Status == domain.SnapshotStatusDiscrepancy {
		s.raiseDiscrepancy(ctx, snapshot, by)
	}

	log.Info().
		Str("status", string(snapshot.Status)).
		Str("closing_balance", snapshot.ClosingBalance.String()).
		Str("liabilities", snapshot.Liabilities.String()).
		Str("discrepancy", snapshot.Discrepancy.String()).
		Str("coverage_percent", result.CoveragePercent.StringFixed(2)).
		Int64("active_wallets", snapshot.ActiveWallets).
		Msg("reconciliation completed")

	return result, nil
}

// raiseDiscrepancy records the signal and fires the alert without waiting for it.
func (s *ReconciliationServiceImpl) raiseDiscrepancy(ctx context.Context, snapshot *domain.TrustAccountSnapshot, by uuid.UUID) {
	alert := domain.DiscrepancyAlert{
		Date:         snapshot.Date,
		TrustBalance: snapshot.ClosingBalance,
		Liabilities:  snapshot.Liabilities,
		Discrepancy:  snapshot.Discrepancy,
		Notes:        snapshot.Notes,
	}

	s.audit.Append(ctx, &domain.AuditRecord{
		Action:       domain.AuditActionDiscrepancyAlert,
		ActorID:      by,
		ResourceType: "trust_account_snapshot",
		ResourceID:   snapshot.Date.Format(domain.DateLayout),
		Outcome:      domain.AuditOutcomeSuccess,
		Details:      map[string]string{"discrepancy": snapshot.Discrepancy.String()},
	})

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		actx, cancel := context.WithTimeout(context.Background(), s.alertTimeout)
		defer cancel()

		if err := s.alerts.SendDiscrepancyAlert(actx, alert); err != nil {
			s.log.Error().Err(err).
				Str("date", alert.Date.Format(domain.DateLayout)).
				Msg("discrepancy alert failed")
		}
	}()
}

// Wait blocks until in-flight alerts finish or ctx expires.
func (s *ReconciliationServiceImpl) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns the snapshot recorded for date.
func (s *ReconciliationServiceImpl) Get(ctx context.Context, date time.Time) (*ports.ReconciliationResult, error) {
	snapshot, err := s.snapshots.GetByDate(ctx, domain.NormalizeDate(date))
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("get snapshot: %w", err))
	}
	if snapshot == nil {
		return nil, apperror.ErrNotFound("Reconciliation snapshot")
	}
	return toResult(snapshot), nil
}

// List returns snapshots between from and to inclusive, newest first.
func (s *ReconciliationServiceImpl) List(ctx context.Context, from, to time.Time) ([]ports.ReconciliationResult, error) {
	from, to = domain.NormalizeDate(from), domain.NormalizeDate(to)
	if to.Before(from) {
		return nil, apperror.Validation("from must not be after to")
	}

	snapshots, err := s.snapshots.List(ctx, from, to)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("list snapshots: %w", err))
	}

	results := make([]ports.ReconciliationResult, 0, len(snapshots))
	for i := range snapshots {
		results = append(results, *toResult(&snapshots[i]))
	}
	return results, nil
}

// ResolveDiscrepancy records an operator's sign-off on a discrepancy
// snapshot. The status stays discrepancy; only a re-run changes it.
func (s *ReconciliationServiceImpl) ResolveDiscrepancy(ctx context.Context, req ports.ResolveDiscrepancyRequest) (*ports.ReconciliationResult, error) {
	if req.Notes == "" {
		return nil, apperror.Validation("resolution notes are required")
	}
	if req.ResolvedBy == uuid.Nil {
		return nil, apperror.ErrAuthenticationRequired()
	}
	date := domain.NormalizeDate(req.Date)

	err := s.snapshots.MarkResolved(ctx, date, req.ResolvedBy, req.Notes, s.now().UTC())
	if errors.Is(err, ports.ErrNotFound) {
		current, gerr := s.Get(ctx, date)
		if gerr != nil {
			return nil, gerr
		}
		return nil, apperror.ErrInvalidStateTransition(fmt.Sprintf(
			"snapshot is %s and cannot be resolved", describeResolvable(&current.Snapshot)))
	}
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("resolve snapshot: %w", err))
	}

	s.audit.Append(ctx, &domain.AuditRecord{
		Action:       domain.AuditActionResolveDiscrepancy,
		ActorID:      req.ResolvedBy,
		ResourceType: "trust_account_snapshot",
		ResourceID:   date.Format(domain.DateLayout),
		Outcome:      domain.AuditOutcomeSuccess,
		Details:      map[string]string{"notes": req.Notes},
	})

	return s.Get(ctx, date)
}

func describeResolvable(s *domain.TrustAccountSnapshot) string {
	if s.IsResolved() {
		return "already resolved"
	}
	return string(s.Status)
}

func toResult(s *domain.TrustAccountSnapshot) *ports.ReconciliationResult {
	return &ports.ReconciliationResult{
		Snapshot:        *s,
		CoveragePercent: domain.CoveragePercent(s.ClosingBalance, s.Liabilities),
	}
}
