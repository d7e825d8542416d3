package ports

import (
	"context"
	"crypto/ed25519"
	"time"

	"provably-fair-dice/internal/core/domain"
)

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

// Clock is the monotonic logical clock of the ledger.
type Clock interface {
	CurrentSlot(ctx context.Context) (uint64, error)
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, signer string, nonce string, ttl time.Duration) (bool, error)
}

// SettlementCache is a read-through cache of closed bets.
type SettlementCache interface {
	Get(ctx context.Context, bet domain.Address) (*domain.Settlement, error)
	Set(ctx context.Context, settlement *domain.Settlement, ttl time.Duration) error
}

// SignatureService authenticates API callers by their Ed25519 keys.
type SignatureService interface {
	Sign(key ed25519.PrivateKey, payload string) string
	Verify(signer domain.Address, payload string, signatureHex string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// SignatureVerifier executes the instruction preceding a resolution.
type SignatureVerifier interface {
	Execute(ix domain.Instruction) (*domain.InstructionResult, error)
}

// --- Service Ports (Business Logic) ---

// DiceService is the bet lifecycle: Placed -> Resolved | Refunded.
type DiceService interface {
	Fund(ctx context.Context, req FundRequest) (*domain.Vault, error)
	PlaceBet(ctx context.Context, req PlaceBetRequest) (*domain.Bet, error)
	ResolveBet(ctx context.Context, req ResolveBetRequest) (*domain.Settlement, error)
	RefundBet(ctx context.Context, req RefundBetRequest) (*domain.Settlement, error)
	Deposit(ctx context.Context, req DepositRequest) (*domain.Account, error)
}

// FundRequest moves house funds into the house's vault.
type FundRequest struct {
	House  domain.Address
	Amount uint64
}

// PlaceBetRequest escrows a stake against a house's vault.
type PlaceBetRequest struct {
	Player domain.Address
	House  domain.Address
	Seed   domain.Seed
	Target uint8
	Amount uint64
}

// ResolveBetRequest settles a bet with a house signature. Preceding is the
// result of the instruction executed immediately before, in the same unit.
type ResolveBetRequest struct {
	House     domain.Address
	Bet       domain.Address
	Preceding *domain.InstructionResult
	Signature []byte
}

// RefundBetRequest returns an unresolved stake after the cooldown.
type RefundBetRequest struct {
	Player domain.Address
	House  domain.Address
	Bet    domain.Address
}

// DepositRequest credits an account from outside the ledger.
type DepositRequest struct {
	Account domain.Address
	Amount  uint64
}

// ReportingService exposes read-only views of the ledger.
type ReportingService interface {
	GetVault(ctx context.Context, house domain.Address) (*domain.Vault, *VaultStats, error)
	GetBet(ctx context.Context, address domain.Address) (*domain.Bet, error)
	ListOpenBets(ctx context.Context, player domain.Address) ([]domain.Bet, error)
	GetSettlement(ctx context.Context, bet domain.Address) (*domain.Settlement, error)
	GetBalance(ctx context.Context, address domain.Address) (uint64, error)
}

// HouseService manages house registration.
type HouseService interface {
	Register(ctx context.Context, req RegisterHouseRequest) (*domain.House, error)
	GetProfile(ctx context.Context, address domain.Address) (*domain.House, error)
	UpdateWebhookURL(ctx context.Context, address domain.Address, webhookURL *string) error
}

// RegisterHouseRequest registers the authenticated signer as a house.
type RegisterHouseRequest struct {
	Address    domain.Address
	Name       string
	WebhookURL *string
}

// NotificationService tells houses about bet activity against their vaults.
// Delivery is asynchronous; errors only report failures to start it.
type NotificationService interface {
	NotifyBetPlaced(ctx context.Context, house domain.Address, bet *domain.Bet) error
	NotifyBetSettled(ctx context.Context, house domain.Address, settlement *domain.Settlement) error
}

// AuditService records signed actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
