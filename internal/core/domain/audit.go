package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionFund          AuditAction = "FUND"
	AuditActionPlaceBet      AuditAction = "PLACE_BET"
	AuditActionResolveBet    AuditAction = "RESOLVE_BET"
	AuditActionRefundBet     AuditAction = "REFUND_BET"
	AuditActionDeposit       AuditAction = "DEPOSIT"
	AuditActionRegisterHouse AuditAction = "REGISTER_HOUSE"
	AuditActionUpdateWebhook AuditAction = "UPDATE_WEBHOOK"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Signer       *Address    `json:"signer,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
