package postgres

import (
	"context"
	"errors"
	"fmt"
)

// ledgerTables must exist before the service can settle anything.
var ledgerTables = []string{"accounts", "bets", "settlements"}

// HealthCheck implements ports.HealthChecker for the ledger database. A
// reachable server without the migrated schema counts as unhealthy.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	if err := h.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	var missing []string
	err := h.pool.QueryRow(ctx,
		`SELECT COALESCE(array_agg(t), '{}') FROM unnest($1::text[]) AS t WHERE to_regclass(t) IS NULL`,
		ledgerTables,
	).Scan(&missing)
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}
	if len(missing) > 0 {
		return errors.New("ledger schema missing tables: " + fmt.Sprint(missing))
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "postgresql"
}
