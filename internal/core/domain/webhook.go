package domain

import (
	"time"

	"github.com/google/uuid"
)

// WebhookStatus represents the delivery state of a webhook.
type WebhookStatus string

const (
	WebhookStatusPending   WebhookStatus = "PENDING"
	WebhookStatusDelivered WebhookStatus = "DELIVERED"
	WebhookStatusFailed    WebhookStatus = "FAILED"
)

// WebhookEvent names the bet transition a notification reports.
type WebhookEvent string

const (
	EventBetPlaced   WebhookEvent = "BET_PLACED"
	EventBetResolved WebhookEvent = "BET_RESOLVED"
	EventBetRefunded WebhookEvent = "BET_REFUNDED"
)

// WebhookDeliveryLog records each webhook delivery attempt.
type WebhookDeliveryLog struct {
	ID          uuid.UUID     `json:"id"`
	Bet         Address       `json:"bet"`
	House       Address       `json:"house"`
	Event       WebhookEvent  `json:"event"`
	WebhookURL  string        `json:"webhook_url"`
	Payload     string        `json:"payload"` // JSON string
	HTTPStatus  *int          `json:"http_status"`
	Attempt     int           `json:"attempt"`
	Status      WebhookStatus `json:"status"`
	NextRetryAt *time.Time    `json:"next_retry_at"`
	LastError   *string       `json:"last_error"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
