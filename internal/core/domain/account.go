package domain

import "time"

// Account is a ledger balance in native units.
type Account struct {
	Address   Address   `json:"address"`
	Balance   uint64    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Vault is the pool a house funds and every open bet of that house draws on.
// It is an ordinary account whose address is derived from the house.
type Vault struct {
	Address Address `json:"address"`
	House   Address `json:"house"`
	Bump    uint8   `json:"bump"`
	Balance uint64  `json:"balance"`
}
