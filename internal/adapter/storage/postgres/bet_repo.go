package postgres

import (
	"context"
	"errors"
	"fmt"

	"provably-fair-dice/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const betColumns = `address, vault, bump, target, slot::text, amount::text, seed, player, lamports::text, created_at`

// BetRepo implements ports.BetRepository. A row exists exactly while the bet
// is open; resolution and refund delete it.
type BetRepo struct {
	pool Pool
}

// NewBetRepo creates a new BetRepo.
func NewBetRepo(pool Pool) *BetRepo {
	return &BetRepo{pool: pool}
}

// Create inserts a bet record. It reports false, without error, when a
// record already occupies the address.
func (r *BetRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Bet) (bool, error) {
	query := `INSERT INTO bets (address, vault, bump, target, slot, amount, seed, player, lamports, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9::numeric, $10)
		ON CONFLICT (address) DO NOTHING`

	tag, err := tx.Exec(ctx, query,
		b.Address.String(), b.Vault.String(), int16(b.Bump), int16(b.Target),
		formatAmount(b.Slot), formatAmount(b.Amount), b.Seed.Bytes(), b.Player.String(),
		formatAmount(b.Lamports), b.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert bet: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get fetches an open bet without locking. Returns nil, nil when absent.
func (r *BetRepo) Get(ctx context.Context, address domain.Address) (*domain.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE address = $1`

	b, err := scanBet(r.pool.QueryRow(ctx, query, address.String()))
	if err != nil {
		return nil, fmt.Errorf("get bet: %w", err)
	}
	return b, nil
}

// GetForUpdate fetches an open bet with pessimistic locking, serializing
// every resolution and refund of the same record.
// This MUST be called within a transaction.
func (r *BetRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, address domain.Address) (*domain.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE address = $1 FOR UPDATE`

	b, err := scanBet(tx.QueryRow(ctx, query, address.String()))
	if err != nil {
		return nil, fmt.Errorf("get bet for update: %w", err)
	}
	return b, nil
}

// Delete destroys a bet record within a transaction.
func (r *BetRepo) Delete(ctx context.Context, tx pgx.Tx, address domain.Address) error {
	tag, err := tx.Exec(ctx, `DELETE FROM bets WHERE address = $1`, address.String())
	if err != nil {
		return fmt.Errorf("delete bet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bet not found: %s", address)
	}
	return nil
}

// ListByPlayer returns the open bets of a player, oldest first.
func (r *BetRepo) ListByPlayer(ctx context.Context, player domain.Address) ([]domain.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE player = $1 ORDER BY slot ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, player.String())
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet row: %w", err)
		}
		bets = append(bets, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bet rows: %w", err)
	}
	return bets, nil
}

func scanBet(row pgx.Row) (*domain.Bet, error) {
	var (
		address, vault, player string
		slot, amount, lamports string
		bump, target           int16
		seed                   []byte
		b                      = &domain.Bet{}
	)
	err := row.Scan(&address, &vault, &bump, &target, &slot, &amount, &seed, &player, &lamports, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if b.Address, err = scanAddress(address); err != nil {
		return nil, err
	}
	if b.Vault, err = scanAddress(vault); err != nil {
		return nil, err
	}
	if b.Player, err = scanAddress(player); err != nil {
		return nil, err
	}
	if b.Seed, err = domain.SeedFromBytes(seed); err != nil {
		return nil, err
	}
	if b.Slot, err = scanAmount(slot); err != nil {
		return nil, err
	}
	if b.Amount, err = scanAmount(amount); err != nil {
		return nil, err
	}
	if b.Lamports, err = scanAmount(lamports); err != nil {
		return nil, err
	}
	b.Bump = uint8(bump)
	b.Target = uint8(target)
	return b, nil
}
