package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconciliationTolerance is the largest absolute discrepancy still reported as reconciled.
const ReconciliationTolerance Money = 1

// DateLayout is the calendar-date format used for snapshot keys.
const DateLayout = "2006-01-02"

type SnapshotStatus string

const (
	SnapshotStatusPending     SnapshotStatus = "pending"
	SnapshotStatusReconciled  SnapshotStatus = "reconciled"
	SnapshotStatusDiscrepancy SnapshotStatus = "discrepancy"
)

// TrustAccountSnapshot records one reconciliation per calendar date.
type TrustAccountSnapshot struct {
	Date            time.Time      `json:"date"`
	ClosingBalance  Money          `json:"closing_balance"`
	Liabilities     Money          `json:"e_money_liabilities"`
	Discrepancy     Money          `json:"discrepancy"`
	Status          SnapshotStatus `json:"status"`
	ActiveWallets   int64          `json:"active_wallets"`
	ReconciledBy    uuid.UUID      `json:"reconciled_by"`
	Notes           string         `json:"notes,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	ResolvedBy      *uuid.UUID     `json:"resolved_by,omitempty"`
	ResolutionNotes string         `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Settle fills the computed fields from the closing balance and liabilities
// and moves the snapshot out of pending.
func (s *TrustAccountSnapshot) Settle(liabilities Money, activeWallets int64) {
	s.Liabilities = liabilities
	s.ActiveWallets = activeWallets
	s.Discrepancy = s.ClosingBalance - liabilities
	s.Status = ClassifyDiscrepancy(s.Discrepancy)
}

// IsResolved reports whether an operator has signed off a discrepancy.
func (s *TrustAccountSnapshot) IsResolved() bool {
	return s.ResolvedAt != nil
}

// ClassifyDiscrepancy applies the reconciliation tolerance.
func ClassifyDiscrepancy(d Money) SnapshotStatus {
	if d.Abs() <= ReconciliationTolerance {
		return SnapshotStatusReconciled
	}
	return SnapshotStatusDiscrepancy
}

// CoveragePercent is closing/liabilities*100, rounded to 2 places. Zero
// liabilities yield 100 when nothing is owed.
func CoveragePercent(closing, liabilities Money) decimal.Decimal {
	if liabilities == 0 {
		return decimal.NewFromInt(100)
	}
	return closing.Decimal().
		Div(liabilities.Decimal()).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

// NormalizeDate truncates t to a UTC calendar date.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
