package postgres

import (
	"context"
	"errors"
	"fmt"

	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// SettlementRepo implements ports.SettlementRepository.
type SettlementRepo struct {
	pool Pool
}

// NewSettlementRepo creates a new SettlementRepo.
func NewSettlementRepo(pool Pool) *SettlementRepo {
	return &SettlementRepo{pool: pool}
}

// Create appends a settlement within the transaction that closed the bet.
func (r *SettlementRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.Settlement) error {
	query := `INSERT INTO settlements (id, bet, vault, player, kind, target, roll, amount, payout, signature, slot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::numeric, $10, $11::numeric, $12)`

	var roll *int16
	if s.Roll != nil {
		v := int16(*s.Roll)
		roll = &v
	}

	_, err := tx.Exec(ctx, query,
		s.ID, s.Bet.String(), s.Vault.String(), s.Player.String(), string(s.Kind),
		int16(s.Target), roll, formatAmount(s.Amount), formatAmount(s.Payout),
		s.Signature, formatAmount(s.Slot), s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

// GetByBet fetches the settlement of a closed bet. Returns nil, nil when the
// bet was never settled.
func (r *SettlementRepo) GetByBet(ctx context.Context, bet domain.Address) (*domain.Settlement, error) {
	query := `SELECT id, bet, vault, player, kind, target, roll, amount::text, payout::text, signature, slot::text, created_at
		FROM settlements WHERE bet = $1 ORDER BY created_at DESC LIMIT 1`

	var (
		betAddr, vault, player string
		amount, payout, slot   string
		kind                   string
		target                 int16
		roll                   *int16
		s                      = &domain.Settlement{}
	)
	err := r.pool.QueryRow(ctx, query, bet.String()).Scan(
		&s.ID, &betAddr, &vault, &player, &kind, &target, &roll,
		&amount, &payout, &s.Signature, &slot, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settlement: %w", err)
	}

	if s.Bet, err = scanAddress(betAddr); err != nil {
		return nil, err
	}
	if s.Vault, err = scanAddress(vault); err != nil {
		return nil, err
	}
	if s.Player, err = scanAddress(player); err != nil {
		return nil, err
	}
	if s.Amount, err = scanAmount(amount); err != nil {
		return nil, err
	}
	if s.Payout, err = scanAmount(payout); err != nil {
		return nil, err
	}
	if s.Slot, err = scanAmount(slot); err != nil {
		return nil, err
	}
	s.Kind = domain.SettlementKind(kind)
	s.Target = uint8(target)
	if roll != nil {
		v := uint8(*roll)
		s.Roll = &v
	}
	return s, nil
}

// GetVaultStats aggregates every settlement drawn on a vault.
func (r *SettlementRepo) GetVaultStats(ctx context.Context, vault domain.Address) (*ports.VaultStats, error) {
	query := `SELECT
		COUNT(*) FILTER (WHERE kind = 'RESOLVED') AS resolved,
		COUNT(*) FILTER (WHERE kind = 'REFUNDED') AS refunded,
		COUNT(*) FILTER (WHERE kind = 'RESOLVED' AND payout > 0) AS wins,
		COALESCE(SUM(amount), 0)::text AS staked,
		COALESCE(SUM(payout) FILTER (WHERE kind = 'RESOLVED'), 0)::text AS paid
		FROM settlements WHERE vault = $1`

	var staked, paid string
	stats := &ports.VaultStats{}
	err := r.pool.QueryRow(ctx, query, vault.String()).Scan(
		&stats.Resolved, &stats.Refunded, &stats.Wins, &staked, &paid,
	)
	if err != nil {
		return nil, fmt.Errorf("get vault stats: %w", err)
	}
	if stats.TotalStaked, err = scanAmount(staked); err != nil {
		return nil, err
	}
	if stats.TotalPaid, err = scanAmount(paid); err != nil {
		return nil, err
	}
	return stats, nil
}
