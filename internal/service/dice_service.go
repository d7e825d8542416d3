package service

import (
	"context"
	"fmt"
	"time"

	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/core/ports"
	"provably-fair-dice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const settlementCacheTTL = 24 * time.Hour

// DiceConfig scopes a DiceServiceImpl.
type DiceConfig struct {
	ProgramID     domain.Address
	FaucetEnabled bool
}

// DiceServiceImpl implements ports.DiceService. Every operation runs in a
// single database transaction and either commits in full or changes nothing.
type DiceServiceImpl struct {
	accounts    ports.AccountRepository
	bets        ports.BetRepository
	settlements ports.SettlementRepository
	cache       ports.SettlementCache
	clock       ports.Clock
	transactor  ports.DBTransactor
	cfg         DiceConfig
	log         zerolog.Logger
}

// NewDiceService creates a new DiceServiceImpl.
func NewDiceService(
	accounts ports.AccountRepository,
	bets ports.BetRepository,
	settlements ports.SettlementRepository,
	cache ports.SettlementCache,
	clock ports.Clock,
	transactor ports.DBTransactor,
	cfg DiceConfig,
	log zerolog.Logger,
) *DiceServiceImpl {
	return &DiceServiceImpl{
		accounts:    accounts,
		bets:        bets,
		settlements: settlements,
		cache:       cache,
		clock:       clock,
		transactor:  transactor,
		cfg:         cfg,
		log:         log,
	}
}

// Fund moves house funds into the house's vault, creating the vault account
// on first use.
func (s *DiceServiceImpl) Fund(ctx context.Context, req ports.FundRequest) (*domain.Vault, error) {
	if req.Amount == 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	vault, vaultBump, err := domain.VaultAddress(s.cfg.ProgramID, req.House)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("derive vault: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	ledger, err := lockAccounts(ctx, s.accounts, dbTx, req.House, vault)
	if err != nil {
		return nil, err
	}
	if err := ledger.transfer(req.House, vault, req.Amount); err != nil {
		return nil, err
	}
	if err := ledger.flush(ctx); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("house", req.House.String()).
		Str("vault", vault.String()).
		Uint64("amount", req.Amount).
		Uint64("vault_balance", ledger.Balance(vault)).
		Msg("vault funded")

	return &domain.Vault{
		Address: vault,
		House:   req.House,
		Bump:    vaultBump,
		Balance: ledger.Balance(vault),
	}, nil
}

// PlaceBet escrows a stake against a house's vault. The player pays the
// stake into the vault and the record's storage deposit into the record.
func (s *DiceServiceImpl) PlaceBet(ctx context.Context, req ports.PlaceBetRequest) (*domain.Bet, error) {
	if !domain.ValidTarget(req.Target) {
		return nil, apperror.ErrInvalidTarget()
	}
	if req.Amount == 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	vault, _, err := domain.VaultAddress(s.cfg.ProgramID, req.House)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("derive vault: %w", err))
	}
	betAddr, betBump, err := domain.BetAddress(s.cfg.ProgramID, vault, req.Seed)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("derive bet: %w", err))
	}

	slot, err := s.clock.CurrentSlot(ctx)
	if err != nil {
		return nil, apperror.ErrClockUnavailable(err)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	ledger, err := lockAccounts(ctx, s.accounts, dbTx, req.Player, vault)
	if err != nil {
		return nil, err
	}

	bet := &domain.Bet{
		Address:   betAddr,
		Vault:     vault,
		Bump:      betBump,
		Target:    req.Target,
		Slot:      slot,
		Amount:    req.Amount,
		Seed:      req.Seed,
		Player:    req.Player,
		Lamports:  domain.BetRentDeposit(),
		CreatedAt: time.Now().UTC(),
	}

	if err := ledger.debit(req.Player, bet.Lamports); err != nil {
		return nil, err
	}
	if err := ledger.transfer(req.Player, vault, req.Amount); err != nil {
		return nil, err
	}

	created, err := s.bets.Create(ctx, dbTx, bet)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create bet: %w", err))
	}
	if !created {
		return nil, apperror.ErrBetAlreadyExists()
	}

	if err := ledger.flush(ctx); err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("bet", bet.Address.String()).
		Str("vault", vault.String()).
		Str("player", req.Player.String()).
		Uint8("target", bet.Target).
		Uint64("amount", bet.Amount).
		Uint64("slot", bet.Slot).
		Msg("bet placed")

	return bet, nil
}

// ResolveBet settles a bet with the house's signature over its canonical
// encoding. Checks run in a fixed order and the first failure aborts the
// whole operation.
func (s *DiceServiceImpl) ResolveBet(ctx context.Context, req ports.ResolveBetRequest) (*domain.Settlement, error) {
	vault, _, err := domain.VaultAddress(s.cfg.ProgramID, req.House)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("derive vault: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	bet, err := s.lockBet(ctx, dbTx, req.Bet, vault)
	if err != nil {
		return nil, err
	}

	if err := verifyHouseSignature(req.Preceding, req.House, req.Signature, bet.Encode()); err != nil {
		return nil, err
	}

	roll := domain.Roll(req.Signature)

	slot, err := s.clock.CurrentSlot(ctx)
	if err != nil {
		return nil, apperror.ErrClockUnavailable(err)
	}

	ledger, err := lockAccounts(ctx, s.accounts, dbTx, bet.Player, vault)
	if err != nil {
		return nil, err
	}

	var paid uint64
	if domain.Wins(bet.Target, roll) {
		payout, err := domain.Payout(bet.Amount, bet.Target)
		if err != nil {
			return nil, apperror.ErrArithmeticOverflow(err)
		}
		paid = min(payout, ledger.Balance(vault))
		if err := ledger.transfer(vault, bet.Player, paid); err != nil {
			return nil, err
		}
	}

	settlement := &domain.Settlement{
		ID:        uuid.New(),
		Bet:       bet.Address,
		Vault:     vault,
		Player:    bet.Player,
		Kind:      domain.SettlementResolved,
		Target:    bet.Target,
		Roll:      &roll,
		Amount:    bet.Amount,
		Payout:    paid,
		Signature: append([]byte(nil), req.Signature...),
		Slot:      slot,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.closeBet(ctx, dbTx, ledger, bet, settlement); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("bet", bet.Address.String()).
		Str("vault", vault.String()).
		Str("player", bet.Player.String()).
		Uint8("target", bet.Target).
		Uint8("roll", roll).
		Uint64("payout", paid).
		Msg("bet resolved")

	return settlement, nil
}

// RefundBet returns the stake of a bet the house never resolved, once the
// cooldown has strictly elapsed.
func (s *DiceServiceImpl) RefundBet(ctx context.Context, req ports.RefundBetRequest) (*domain.Settlement, error) {
	vault, _, err := domain.VaultAddress(s.cfg.ProgramID, req.House)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("derive vault: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	bet, err := s.lockBet(ctx, dbTx, req.Bet, vault)
	if err != nil {
		return nil, err
	}
	if bet.Player != req.Player {
		return nil, apperror.ErrPlayerMismatch()
	}

	slot, err := s.clock.CurrentSlot(ctx)
	if err != nil {
		return nil, apperror.ErrClockUnavailable(err)
	}
	if !domain.CooldownElapsed(bet.Slot, slot) {
		return nil, apperror.ErrRefundCooldownNotElapsed()
	}

	ledger, err := lockAccounts(ctx, s.accounts, dbTx, bet.Player, vault)
	if err != nil {
		return nil, err
	}
	if err := ledger.transfer(vault, bet.Player, bet.Amount); err != nil {
		return nil, err
	}

	settlement := &domain.Settlement{
		ID:        uuid.New(),
		Bet:       bet.Address,
		Vault:     vault,
		Player:    bet.Player,
		Kind:      domain.SettlementRefunded,
		Target:    bet.Target,
		Amount:    bet.Amount,
		Payout:    bet.Amount,
		Slot:      slot,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.closeBet(ctx, dbTx, ledger, bet, settlement); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("bet", bet.Address.String()).
		Str("vault", vault.String()).
		Str("player", bet.Player.String()).
		Uint64("amount", bet.Amount).
		Uint64("placed_slot", bet.Slot).
		Uint64("slot", slot).
		Msg("bet refunded")

	return settlement, nil
}

// Deposit credits an account from outside the ledger. Only enabled for
// development deployments.
func (s *DiceServiceImpl) Deposit(ctx context.Context, req ports.DepositRequest) (*domain.Account, error) {
	if !s.cfg.FaucetEnabled {
		return nil, apperror.ErrFaucetDisabled()
	}
	if req.Amount == 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	ledger, err := lockAccounts(ctx, s.accounts, dbTx, req.Account)
	if err != nil {
		return nil, err
	}
	if err := ledger.credit(req.Account, req.Amount); err != nil {
		return nil, err
	}
	if err := ledger.flush(ctx); err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	account := *ledger.accounts[req.Account]
	s.log.Info().
		Str("account", req.Account.String()).
		Uint64("amount", req.Amount).
		Uint64("balance", account.Balance).
		Msg("deposit credited")

	return &account, nil
}

// lockBet loads and locks an open bet and checks that it is the record the
// vault and its own seed and bump derive to.
func (s *DiceServiceImpl) lockBet(ctx context.Context, tx pgx.Tx, address, vault domain.Address) (*domain.Bet, error) {
	bet, err := s.bets.GetForUpdate(ctx, tx, address)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock bet: %w", err))
	}
	if bet == nil {
		return nil, apperror.ErrBetNotFound()
	}

	if bet.Vault != vault {
		return nil, apperror.ErrBetAddressMismatch()
	}
	expected, err := domain.CreateAddress(s.cfg.ProgramID, bet.Bump, []byte(domain.BetTag), vault.Bytes(), bet.Seed.Bytes())
	if err != nil || expected != bet.Address {
		return nil, apperror.ErrBetAddressMismatch()
	}
	return bet, nil
}

// closeBet destroys the record, returns its storage deposit to the player,
// writes balances and the settlement, then commits.
func (s *DiceServiceImpl) closeBet(ctx context.Context, tx pgx.Tx, ledger *ledgerTx, bet *domain.Bet, settlement *domain.Settlement) error {
	if err := ledger.credit(bet.Player, bet.Lamports); err != nil {
		return err
	}
	if err := s.bets.Delete(ctx, tx, bet.Address); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("delete bet: %w", err))
	}
	if err := ledger.flush(ctx); err != nil {
		return err
	}
	if err := s.settlements.Create(ctx, tx, settlement); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("create settlement: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	if err := s.cache.Set(ctx, settlement, settlementCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("bet", bet.Address.String()).Msg("failed to cache settlement")
	}
	return nil
}

// verifyHouseSignature interprets the result of the instruction executed
// just before a resolution. It never verifies a signature itself.
func verifyHouseSignature(preceding *domain.InstructionResult, house domain.Address, sig, message []byte) error {
	if !preceding.FromEd25519Program() {
		return apperror.ErrInvalidEd25519ProgramID()
	}
	if preceding.AccountCount != 0 {
		return apperror.ErrInvalidEd25519Accounts()
	}
	if len(preceding.Signatures) != 1 {
		return apperror.ErrInvalidEd25519SignatureLen()
	}

	entry := preceding.Signatures[0]
	switch {
	case !entry.IsVerifiable:
		return apperror.ErrInvalidEd25519Header()
	case !entry.SignedBy(house):
		return apperror.ErrInvalidEd25519Pubkey()
	case !entry.HasSignature(sig):
		return apperror.ErrInvalidEd25519Signature()
	case !entry.HasMessage(message):
		return apperror.ErrInvalidEd25519Message()
	}
	return nil
}
