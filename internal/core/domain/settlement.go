package domain

import (
	"time"

	"github.com/google/uuid"
)

// SettlementKind is the terminal state a bet record was closed in.
type SettlementKind string

const (
	SettlementResolved SettlementKind = "RESOLVED"
	SettlementRefunded SettlementKind = "REFUNDED"
)

// Settlement is the append-only trace of a destroyed bet record. For
// resolutions it keeps the house signature so anyone can recompute the roll.
type Settlement struct {
	ID        uuid.UUID      `json:"id"`
	Bet       Address        `json:"bet"`
	Vault     Address        `json:"vault"`
	Player    Address        `json:"player"`
	Kind      SettlementKind `json:"kind"`
	Target    uint8          `json:"target"`
	Roll      *uint8         `json:"roll,omitempty"`
	Amount    uint64         `json:"amount"`
	Payout    uint64         `json:"payout"`
	Signature []byte         `json:"signature,omitempty"`
	Slot      uint64         `json:"slot"`
	CreatedAt time.Time      `json:"created_at"`
}

// Won reports whether a resolved bet paid out.
func (s *Settlement) Won() bool {
	return s.Kind == SettlementResolved && s.Payout > 0
}
