package ports

import "context"

// HealthChecker is one backing store reported by GET /health. The ledger
// database and the Redis slot clock both implement it.
type HealthChecker interface {
	Name() string
	Ping(ctx context.Context) error
}
