package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// healthTimeout caps a single health check.
const healthTimeout = 2 * time.Second

// HealthCheck implements ports.HealthChecker for PostgreSQL. A reachable
// database without the ledger schema counts as unhealthy.
type HealthCheck struct {
	pool Pool
}

// NewHealthCheck creates a PostgreSQL health checker.
func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping checks connectivity and that migrations have been applied.
func (h *HealthCheck) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var version *string
	err := h.pool.QueryRow(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return fmt.Errorf("query schema version: %w", err)
	}
	if version == nil {
		return errors.New("ledger schema not migrated")
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "postgresql"
}
