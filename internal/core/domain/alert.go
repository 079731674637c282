package domain

import "time"

// DiscrepancyAlert is sent to operations when a reconciliation does not balance.
type DiscrepancyAlert struct {
	Date         time.Time `json:"-"`
	TrustBalance Money     `json:"trust_balance"`
	Liabilities  Money     `json:"liabilities"`
	Discrepancy  Money     `json:"discrepancy"`
	Notes        string    `json:"notes,omitempty"`
}

// AlertEvent is the JSON body posted to the alert webhook.
type AlertEvent struct {
	Event     string           `json:"event"`
	Date      string           `json:"date"`
	Alert     DiscrepancyAlert `json:"alert"`
	Timestamp int64            `json:"timestamp"`
}

// AlertEventDiscrepancy is the event name for reconciliation discrepancies.
const AlertEventDiscrepancy = "reconciliation.discrepancy"
