package postgres

import (
	"context"
	"errors"
	"fmt"

	"provably-fair-dice/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// HouseRepo implements ports.HouseRepository.
type HouseRepo struct {
	pool Pool
}

// NewHouseRepo creates a new HouseRepo.
func NewHouseRepo(pool Pool) *HouseRepo {
	return &HouseRepo{pool: pool}
}

// Create inserts a house profile. Returns false if the address is taken.
func (r *HouseRepo) Create(ctx context.Context, h *domain.House) (bool, error) {
	query := `INSERT INTO houses (address, name, webhook_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		h.Address.String(), h.Name, h.WebhookURL, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert house: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get fetches a house profile. Returns nil, nil when absent.
func (r *HouseRepo) Get(ctx context.Context, address domain.Address) (*domain.House, error) {
	query := `SELECT address, name, webhook_url, created_at, updated_at
		FROM houses WHERE address = $1`

	var addr string
	h := &domain.House{}
	err := r.pool.QueryRow(ctx, query, address.String()).Scan(
		&addr, &h.Name, &h.WebhookURL, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get house: %w", err)
	}
	if h.Address, err = scanAddress(addr); err != nil {
		return nil, err
	}
	return h, nil
}

// UpdateWebhookURL replaces or clears a house's webhook URL.
func (r *HouseRepo) UpdateWebhookURL(ctx context.Context, address domain.Address, webhookURL *string) error {
	query := `UPDATE houses SET webhook_url = $1, updated_at = NOW() WHERE address = $2`

	tag, err := r.pool.Exec(ctx, query, webhookURL, address.String())
	if err != nil {
		return fmt.Errorf("update house webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("house not found: %s", address)
	}
	return nil
}
