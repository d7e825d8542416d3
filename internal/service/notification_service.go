package service

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultWebhookRetryIntervals are the waits between delivery attempts.
var DefaultWebhookRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// WebhookPayload is the JSON structure sent to a house's webhook_url.
// Signature and Signer are set when the service has a signing key; the
// signature covers the JSON encoding of Data.
type WebhookPayload struct {
	EventType domain.WebhookEvent `json:"event_type"`
	Data      WebhookPayloadData  `json:"data"`
	Signature string              `json:"signature,omitempty"`
	Signer    string              `json:"signer,omitempty"`
}

// WebhookPayloadData holds the bet details in the webhook. Message is the
// hex bet encoding a house signs to resolve a placed bet.
type WebhookPayloadData struct {
	Bet       domain.Address `json:"bet"`
	Vault     domain.Address `json:"vault"`
	Player    domain.Address `json:"player"`
	Target    uint8          `json:"target"`
	Amount    uint64         `json:"amount,string"`
	Slot      uint64         `json:"slot,string"`
	Seed      *domain.Seed   `json:"seed,omitempty"`
	Message   string         `json:"message,omitempty"`
	Roll      *uint8         `json:"roll,omitempty"`
	Payout    uint64         `json:"payout,string"`
	Timestamp int64          `json:"timestamp"`
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NotificationConfig controls webhook delivery. A nil SigningKey sends
// unsigned payloads.
type NotificationConfig struct {
	SigningKey     ed25519.PrivateKey
	RetryIntervals []time.Duration
}

// notificationService implements ports.NotificationService.
type notificationService struct {
	houses     ports.HouseRepository
	deliveries ports.WebhookRepository
	sigSvc     ports.SignatureService
	httpClient HTTPClient
	cfg        NotificationConfig
	log        zerolog.Logger
}

// NewNotificationService creates a new webhook notification service.
func NewNotificationService(
	houses ports.HouseRepository,
	deliveries ports.WebhookRepository,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	cfg NotificationConfig,
	log zerolog.Logger,
) ports.NotificationService {
	if cfg.RetryIntervals == nil {
		cfg.RetryIntervals = DefaultWebhookRetryIntervals
	}
	return &notificationService{
		houses:     houses,
		deliveries: deliveries,
		sigSvc:     sigSvc,
		httpClient: httpClient,
		cfg:        cfg,
		log:        log,
	}
}

// NotifyBetPlaced sends the new bet and the message the house must sign.
func (s *notificationService) NotifyBetPlaced(ctx context.Context, house domain.Address, bet *domain.Bet) error {
	seed := bet.Seed
	data := WebhookPayloadData{
		Bet:       bet.Address,
		Vault:     bet.Vault,
		Player:    bet.Player,
		Target:    bet.Target,
		Amount:    bet.Amount,
		Slot:      bet.Slot,
		Seed:      &seed,
		Message:   hex.EncodeToString(bet.Encode()),
		Timestamp: time.Now().Unix(),
	}
	return s.enqueue(ctx, house, domain.EventBetPlaced, data)
}

// NotifyBetSettled reports a resolution or refund.
func (s *notificationService) NotifyBetSettled(ctx context.Context, house domain.Address, settlement *domain.Settlement) error {
	event := domain.EventBetResolved
	if settlement.Kind == domain.SettlementRefunded {
		event = domain.EventBetRefunded
	}
	data := WebhookPayloadData{
		Bet:       settlement.Bet,
		Vault:     settlement.Vault,
		Player:    settlement.Player,
		Target:    settlement.Target,
		Amount:    settlement.Amount,
		Slot:      settlement.Slot,
		Roll:      settlement.Roll,
		Payout:    settlement.Payout,
		Timestamp: time.Now().Unix(),
	}
	return s.enqueue(ctx, house, event, data)
}

func (s *notificationService) enqueue(ctx context.Context, house domain.Address, event domain.WebhookEvent, data WebhookPayloadData) error {
	profile, err := s.houses.Get(ctx, house)
	if err != nil {
		s.log.Error().Err(err).Str("house", house.String()).Msg("webhook: failed to fetch house")
		return err
	}
	if profile == nil || !profile.HasWebhook() {
		s.log.Debug().Str("house", house.String()).Msg("webhook: no webhook URL configured, skipping")
		return nil
	}

	payload := WebhookPayload{EventType: event, Data: data}
	if s.cfg.SigningKey != nil {
		dataBytes, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal webhook data: %w", err)
		}
		payload.Signature = s.sigSvc.Sign(s.cfg.SigningKey, string(dataBytes))
		signer, err := domain.AddressFromBytes(s.cfg.SigningKey.Public().(ed25519.PublicKey))
		if err != nil {
			return fmt.Errorf("webhook signer: %w", err)
		}
		payload.Signer = signer.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	now := time.Now().UTC()
	delivery := &domain.WebhookDeliveryLog{
		ID:         uuid.New(),
		Bet:        data.Bet,
		House:      house,
		Event:      event,
		WebhookURL: *profile.WebhookURL,
		Payload:    string(payloadBytes),
		Status:     domain.WebhookStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.deliveries.Create(ctx, delivery); err != nil {
		s.log.Warn().Err(err).Str("bet", data.Bet.String()).Msg("webhook: failed to record delivery")
		delivery = nil
	}

	go s.deliverWithRetries(*profile.WebhookURL, payloadBytes, data.Bet, delivery)

	return nil
}

// deliverWithRetries posts the payload until a 2xx response or the retry
// schedule runs out. Every attempt is recorded on delivery when it exists.
func (s *notificationService) deliverWithRetries(url string, payload []byte, bet domain.Address, delivery *domain.WebhookDeliveryLog) {
	intervals := s.cfg.RetryIntervals
	betID := bet.String()

	for attempt := 0; attempt <= len(intervals); attempt++ {
		if attempt > 0 {
			time.Sleep(intervals[attempt-1])
		}

		status, err := s.post(url, payload)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("bet", betID).Int("attempt", attempt+1).Msg("webhook: delivery failed")
		case status >= 200 && status < 300:
			s.log.Info().Str("bet", betID).Int("attempt", attempt+1).Int("status", status).Msg("webhook: delivered successfully")
			s.record(delivery, attempt+1, status, nil, nil)
			return
		default:
			s.log.Warn().Str("bet", betID).Int("attempt", attempt+1).Int("status", status).Msg("webhook: non-2xx response, retrying")
			err = fmt.Errorf("non-2xx response: %d", status)
		}

		var next *time.Duration
		if attempt < len(intervals) {
			next = &intervals[attempt]
		}
		s.record(delivery, attempt+1, status, err, next)
	}

	s.log.Error().Str("bet", betID).Msg("webhook: all retry attempts exhausted")
}

func (s *notificationService) post(url string, payload []byte) (int, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// record updates the delivery log after an attempt. A nil next means no
// further attempt follows.
func (s *notificationService) record(delivery *domain.WebhookDeliveryLog, attempt, status int, deliveryErr error, next *time.Duration) {
	if delivery == nil {
		return
	}

	delivery.Attempt = attempt
	delivery.HTTPStatus = nil
	if status != 0 {
		delivery.HTTPStatus = &status
	}
	delivery.LastError = nil
	delivery.NextRetryAt = nil

	switch {
	case deliveryErr == nil:
		delivery.Status = domain.WebhookStatusDelivered
	case next == nil:
		msg := deliveryErr.Error()
		delivery.LastError = &msg
		delivery.Status = domain.WebhookStatusFailed
	default:
		msg := deliveryErr.Error()
		at := time.Now().UTC().Add(*next)
		delivery.LastError = &msg
		delivery.NextRetryAt = &at
	}

	if err := s.deliveries.Update(context.Background(), delivery); err != nil {
		s.log.Warn().Err(err).Str("bet", delivery.Bet.String()).Msg("webhook: failed to update delivery log")
	}
}
