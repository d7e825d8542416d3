package postgres

import (
	"context"
	"fmt"
	"time"

	"provably-fair-dice/internal/core/domain"
)

// WebhookRepo implements ports.WebhookRepository.
type WebhookRepo struct {
	pool Pool
}

// NewWebhookRepo creates a new WebhookRepo.
func NewWebhookRepo(pool Pool) *WebhookRepo {
	return &WebhookRepo{pool: pool}
}

func (r *WebhookRepo) Create(ctx context.Context, log *domain.WebhookDeliveryLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO webhook_delivery_logs
		(id, bet, house, event, webhook_url, payload, http_status, attempt, status, next_retry_at, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		log.ID, log.Bet.String(), log.House.String(), string(log.Event), log.WebhookURL,
		log.Payload, log.HTTPStatus, log.Attempt, string(log.Status),
		log.NextRetryAt, log.LastError, log.CreatedAt, log.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook delivery: %w", err)
	}
	return nil
}

func (r *WebhookRepo) Update(ctx context.Context, log *domain.WebhookDeliveryLog) error {
	log.UpdatedAt = time.Now()
	_, err := r.pool.Exec(ctx,
		`UPDATE webhook_delivery_logs
		SET http_status = $1, attempt = $2, status = $3, next_retry_at = $4, last_error = $5, updated_at = $6
		WHERE id = $7`,
		log.HTTPStatus, log.Attempt, string(log.Status),
		log.NextRetryAt, log.LastError, log.UpdatedAt, log.ID,
	)
	if err != nil {
		return fmt.Errorf("update webhook delivery: %w", err)
	}
	return nil
}

// ListByBet returns every delivery recorded for a bet, newest first.
func (r *WebhookRepo) ListByBet(ctx context.Context, bet domain.Address) ([]domain.WebhookDeliveryLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, bet, house, event, webhook_url, payload,
		http_status, attempt, status, next_retry_at, last_error,
		created_at, updated_at
		FROM webhook_delivery_logs
		WHERE bet = $1
		ORDER BY created_at DESC`, bet.String())
	if err != nil {
		return nil, fmt.Errorf("list webhook deliveries: %w", err)
	}
	defer rows.Close()

	var logs []domain.WebhookDeliveryLog
	for rows.Next() {
		var l domain.WebhookDeliveryLog
		var betAddr, house, event, status string
		if err := rows.Scan(
			&l.ID, &betAddr, &house, &event, &l.WebhookURL, &l.Payload,
			&l.HTTPStatus, &l.Attempt, &status, &l.NextRetryAt, &l.LastError,
			&l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan webhook delivery: %w", err)
		}
		if l.Bet, err = scanAddress(betAddr); err != nil {
			return nil, err
		}
		if l.House, err = scanAddress(house); err != nil {
			return nil, err
		}
		l.Event = domain.WebhookEvent(event)
		l.Status = domain.WebhookStatus(status)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
