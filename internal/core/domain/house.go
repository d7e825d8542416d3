package domain

import "time"

// House is the registered profile of a key that funds a vault and signs
// resolutions. Registration is optional for betting; it only carries the
// metadata used to notify the house of bet activity.
type House struct {
	Address    Address   `json:"address"`
	Name       string    `json:"name"`
	WebhookURL *string   `json:"webhook_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasWebhook returns true if the house wants bet notifications.
func (h *House) HasWebhook() bool {
	return h.WebhookURL != nil && *h.WebhookURL != ""
}
