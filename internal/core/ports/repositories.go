package ports

import (
	"context"

	"provably-fair-dice/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

// AccountRepository persists ledger balances.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type AccountRepository interface {
	Get(ctx context.Context, address domain.Address) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, address domain.Address) (*domain.Account, error)
	Create(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	UpdateBalance(ctx context.Context, tx pgx.Tx, address domain.Address, balance uint64) error
}

// BetRepository persists open bet records. Records are created and deleted,
// never updated.
type BetRepository interface {
	// Create returns false when a record already occupies the address.
	Create(ctx context.Context, tx pgx.Tx, bet *domain.Bet) (bool, error)
	Get(ctx context.Context, address domain.Address) (*domain.Bet, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, address domain.Address) (*domain.Bet, error)
	Delete(ctx context.Context, tx pgx.Tx, address domain.Address) error
	ListByPlayer(ctx context.Context, player domain.Address) ([]domain.Bet, error)
}

// SettlementRepository is the append-only log of closed bets.
type SettlementRepository interface {
	Create(ctx context.Context, tx pgx.Tx, settlement *domain.Settlement) error
	GetByBet(ctx context.Context, bet domain.Address) (*domain.Settlement, error)
	GetVaultStats(ctx context.Context, vault domain.Address) (*VaultStats, error)
}

// VaultStats aggregates the settlements of one vault.
type VaultStats struct {
	Resolved    int64
	Refunded    int64
	Wins        int64
	TotalStaked uint64
	TotalPaid   uint64
}

// HouseRepository persists registered house profiles.
type HouseRepository interface {
	// Create returns false when the house is already registered.
	Create(ctx context.Context, house *domain.House) (bool, error)
	Get(ctx context.Context, address domain.Address) (*domain.House, error)
	UpdateWebhookURL(ctx context.Context, address domain.Address, webhookURL *string) error
}

// WebhookRepository persists webhook delivery attempts.
type WebhookRepository interface {
	Create(ctx context.Context, log *domain.WebhookDeliveryLog) error
	Update(ctx context.Context, log *domain.WebhookDeliveryLog) error
	ListByBet(ctx context.Context, bet domain.Address) ([]domain.WebhookDeliveryLog, error)
}

// AuditRepository persists audit trail entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
