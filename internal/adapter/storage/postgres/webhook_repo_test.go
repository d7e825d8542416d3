package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"provably-fair-dice/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDelivery() *domain.WebhookDeliveryLog {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.WebhookDeliveryLog{
		ID:         uuid.New(),
		Bet:        testAddress(1),
		House:      testAddress(9),
		Event:      domain.EventBetResolved,
		WebhookURL: "https://house.example.com/hook",
		Payload:    `{"event_type":"BET_RESOLVED"}`,
		Attempt:    0,
		Status:     domain.WebhookStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestWebhookRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookRepo(mock)
	d := newTestDelivery()

	mock.ExpectExec("INSERT INTO webhook_delivery_logs").
		WithArgs(d.ID, d.Bet.String(), d.House.String(), "BET_RESOLVED", d.WebhookURL,
			d.Payload, d.HTTPStatus, 0, "PENDING", d.NextRetryAt, d.LastError, d.CreatedAt, d.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), d))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookRepo(mock)
	d := newTestDelivery()
	status := 200
	d.HTTPStatus = &status
	d.Attempt = 2
	d.Status = domain.WebhookStatusDelivered

	mock.ExpectExec("UPDATE webhook_delivery_logs").
		WithArgs(&status, 2, "DELIVERED", d.NextRetryAt, d.LastError, pgxmock.AnyArg(), d.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	before := d.UpdatedAt
	assert.NoError(t, repo.Update(context.Background(), d))
	assert.False(t, d.UpdatedAt.Before(before))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookRepo_Update_DBError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookRepo(mock)
	d := newTestDelivery()

	mock.ExpectExec("UPDATE webhook_delivery_logs").
		WillReturnError(errors.New("connection reset"))

	assert.ErrorContains(t, repo.Update(context.Background(), d), "update webhook delivery")
}

func TestWebhookRepo_ListByBet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWebhookRepo(mock)
	d := newTestDelivery()
	status := 503
	retry := d.CreatedAt.Add(15 * time.Second)
	lastErr := "non-2xx response"
	d.HTTPStatus = &status
	d.Attempt = 1
	d.NextRetryAt = &retry
	d.LastError = &lastErr

	mock.ExpectQuery("SELECT .+ FROM webhook_delivery_logs WHERE bet").
		WithArgs(d.Bet.String()).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "bet", "house", "event", "webhook_url", "payload",
			"http_status", "attempt", "status", "next_retry_at", "last_error",
			"created_at", "updated_at",
		}).AddRow(
			d.ID, d.Bet.String(), d.House.String(), "BET_RESOLVED", d.WebhookURL, d.Payload,
			&status, 1, "PENDING", &retry, &lastErr,
			d.CreatedAt, d.UpdatedAt,
		))

	logs, err := repo.ListByBet(context.Background(), d.Bet)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, *d, logs[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}
