package dto

// FundVaultRequest is the request body for funding the signer's vault.
type FundVaultRequest struct {
	Amount uint64 `json:"amount" binding:"required,gt=0"`
}

// PlaceBetRequest is the request body for placing a bet. Seed is a decimal
// u128 chosen by the player; it also names the bet record.
type PlaceBetRequest struct {
	House  string `json:"house" binding:"required,address"`
	Seed   string `json:"seed" binding:"required,seed"`
	Target uint8  `json:"target"`
	Amount uint64 `json:"amount" binding:"required,gt=0"`
}

// InstructionRequest is the instruction submitted ahead of a resolution.
// Data is hex encoded.
type InstructionRequest struct {
	ProgramID string   `json:"program_id" binding:"required,address"`
	Accounts  []string `json:"accounts" binding:"omitempty,dive,address"`
	Data      string   `json:"data" binding:"required,hexadecimal"`
}

// ResolveBetRequest is the request body for resolving a bet. Signature is
// the hex house signature over the bet message.
type ResolveBetRequest struct {
	Instruction InstructionRequest `json:"instruction"`
	Signature   string             `json:"signature" binding:"required,hexadecimal,len=128"`
}

// RefundBetRequest is the request body for refunding a stale bet.
type RefundBetRequest struct {
	House string `json:"house" binding:"required,address"`
}

// DepositRequest is the request body for crediting an account. Account
// defaults to the signer.
type DepositRequest struct {
	Account *string `json:"account,omitempty" binding:"omitempty,address"`
	Amount  uint64  `json:"amount" binding:"required,gt=0"`
}

// RegisterHouseRequest is the request body for house registration.
type RegisterHouseRequest struct {
	Name       string  `json:"name" binding:"required,min=1,max=100"`
	WebhookURL *string `json:"webhook_url,omitempty" binding:"omitempty,safe_url,max=500" sanitize:"trim"`
}

// UpdateWebhookRequest is the request body for webhook URL update.
type UpdateWebhookRequest struct {
	WebhookURL *string `json:"webhook_url" binding:"omitempty,safe_url,max=500" sanitize:"trim"`
}

// VaultResponse is the response for vault queries.
type VaultResponse struct {
	Address string              `json:"address"`
	House   string              `json:"house"`
	Bump    uint8               `json:"bump"`
	Balance uint64              `json:"balance"`
	Stats   *VaultStatsResponse `json:"stats,omitempty"`
}

// VaultStatsResponse totals the bets a vault settled.
type VaultStatsResponse struct {
	Resolved    int64  `json:"resolved"`
	Refunded    int64  `json:"refunded"`
	Wins        int64  `json:"wins"`
	TotalStaked uint64 `json:"total_staked"`
	TotalPaid   uint64 `json:"total_paid"`
}

// BetResponse is the response for open bets. Message is the hex encoding
// the house signs to resolve the bet.
type BetResponse struct {
	Address   string `json:"address"`
	Vault     string `json:"vault"`
	Player    string `json:"player"`
	Seed      string `json:"seed"`
	Target    uint8  `json:"target"`
	Amount    uint64 `json:"amount"`
	Slot      uint64 `json:"slot"`
	Bump      uint8  `json:"bump"`
	Lamports  uint64 `json:"lamports"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// SettlementResponse is the response for resolved and refunded bets.
type SettlementResponse struct {
	Bet       string `json:"bet"`
	Vault     string `json:"vault"`
	Player    string `json:"player"`
	Kind      string `json:"kind"`
	Target    uint8  `json:"target"`
	Roll      *uint8 `json:"roll,omitempty"`
	Won       bool   `json:"won"`
	Amount    uint64 `json:"amount"`
	Payout    uint64 `json:"payout"`
	Signature string `json:"signature,omitempty"`
	Slot      uint64 `json:"slot"`
	CreatedAt string `json:"created_at"`
}

// BalanceResponse is the response for balance queries.
type BalanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

// HouseResponse is the response for house profiles.
type HouseResponse struct {
	Address    string  `json:"address"`
	Name       string  `json:"name"`
	WebhookURL *string `json:"webhook_url,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// BetListResponse wraps a player's open bets.
type BetListResponse struct {
	Bets  []BetResponse `json:"bets"`
	Total int           `json:"total"`
}
