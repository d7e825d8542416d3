package service

import (
	"context"
	"fmt"

	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/core/ports"
	"provably-fair-dice/pkg/apperror"

	"github.com/rs/zerolog"
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	accounts    ports.AccountRepository
	bets        ports.BetRepository
	settlements ports.SettlementRepository
	cache       ports.SettlementCache
	programID   domain.Address
	log         zerolog.Logger
}

// NewReportingService creates a new reporting service.
func NewReportingService(
	accounts ports.AccountRepository,
	bets ports.BetRepository,
	settlements ports.SettlementRepository,
	cache ports.SettlementCache,
	programID domain.Address,
	log zerolog.Logger,
) ports.ReportingService {
	return &reportingService{
		accounts:    accounts,
		bets:        bets,
		settlements: settlements,
		cache:       cache,
		programID:   programID,
		log:         log,
	}
}

// GetVault returns a house's vault and the totals of every bet it settled.
func (s *reportingService) GetVault(ctx context.Context, house domain.Address) (*domain.Vault, *ports.VaultStats, error) {
	addr, bump, err := domain.VaultAddress(s.programID, house)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("derive vault: %w", err))
	}

	account, err := s.accounts.Get(ctx, addr)
	if err != nil {
		return nil, nil, apperror.ErrDatabaseError(err)
	}
	if account == nil {
		return nil, nil, apperror.ErrNotFound("vault")
	}

	stats, err := s.settlements.GetVaultStats(ctx, addr)
	if err != nil {
		return nil, nil, apperror.ErrDatabaseError(err)
	}

	return &domain.Vault{
		Address: addr,
		House:   house,
		Bump:    bump,
		Balance: account.Balance,
	}, stats, nil
}

// GetBet returns an open bet.
func (s *reportingService) GetBet(ctx context.Context, address domain.Address) (*domain.Bet, error) {
	bet, err := s.bets.Get(ctx, address)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if bet == nil {
		return nil, apperror.ErrBetNotFound()
	}
	return bet, nil
}

// ListOpenBets returns a player's open bets, oldest first.
func (s *reportingService) ListOpenBets(ctx context.Context, player domain.Address) ([]domain.Bet, error) {
	bets, err := s.bets.ListByPlayer(ctx, player)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if bets == nil {
		bets = []domain.Bet{}
	}
	return bets, nil
}

// GetSettlement returns how a closed bet was settled. Redis is consulted
// first; a cache failure falls through to the database.
func (s *reportingService) GetSettlement(ctx context.Context, bet domain.Address) (*domain.Settlement, error) {
	cached, err := s.cache.Get(ctx, bet)
	if err != nil {
		s.log.Warn().Err(err).Str("bet", bet.String()).Msg("settlement cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	settlement, err := s.settlements.GetByBet(ctx, bet)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if settlement == nil {
		return nil, apperror.ErrNotFound("settlement")
	}
	return settlement, nil
}

// GetBalance returns an account balance; unknown accounts hold nothing.
func (s *reportingService) GetBalance(ctx context.Context, address domain.Address) (uint64, error) {
	account, err := s.accounts.Get(ctx, address)
	if err != nil {
		return 0, apperror.ErrDatabaseError(err)
	}
	if account == nil {
		return 0, nil
	}
	return account.Balance, nil
}
