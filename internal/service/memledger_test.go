package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// memLedger is an in-memory stand-in for the PostgreSQL ledger. A
// transaction holds the ledger mutex from Begin until Commit or Rollback,
// so transactions are fully serialized, and Rollback restores the snapshot
// taken at Begin.
type memLedger struct {
	mu          sync.Mutex
	accounts    map[domain.Address]domain.Account
	bets        map[domain.Address]domain.Bet
	settlements []domain.Settlement
}

type memSnapshot struct {
	accounts    map[domain.Address]domain.Account
	bets        map[domain.Address]domain.Bet
	settlements int
}

func newMemLedger() *memLedger {
	return &memLedger{
		accounts: make(map[domain.Address]domain.Account),
		bets:     make(map[domain.Address]domain.Bet),
	}
}

func (l *memLedger) Begin(_ context.Context) (pgx.Tx, error) {
	l.mu.Lock()
	snap := memSnapshot{
		accounts:    make(map[domain.Address]domain.Account, len(l.accounts)),
		bets:        make(map[domain.Address]domain.Bet, len(l.bets)),
		settlements: len(l.settlements),
	}
	for k, v := range l.accounts {
		snap.accounts[k] = v
	}
	for k, v := range l.bets {
		snap.bets[k] = v
	}
	return &memTx{ledger: l, snap: snap}, nil
}

// total is the sum of every account balance plus the deposits held by open
// bet records.
func (l *memLedger) total() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum uint64
	for _, a := range l.accounts {
		sum += a.Balance
	}
	for _, b := range l.bets {
		sum += b.Lamports
	}
	return sum
}

func (l *memLedger) balance(addr domain.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[addr].Balance
}

func (l *memLedger) openBets() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bets)
}

func (l *memLedger) settlementCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.settlements)
}

type memTx struct {
	pgx.Tx
	ledger *memLedger
	snap   memSnapshot
	done   bool
}

func (t *memTx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.ledger.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.ledger.accounts = t.snap.accounts
	t.ledger.bets = t.snap.bets
	t.ledger.settlements = t.ledger.settlements[:t.snap.settlements]
	t.ledger.mu.Unlock()
	return nil
}

// Repositories. Methods taking a tx run while the ledger mutex is held by
// that tx; the others take the mutex themselves.

type memAccounts struct{ l *memLedger }

func (r memAccounts) Get(_ context.Context, addr domain.Address) (*domain.Account, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if a, ok := r.l.accounts[addr]; ok {
		return &a, nil
	}
	return nil, nil
}

func (r memAccounts) GetForUpdate(_ context.Context, _ pgx.Tx, addr domain.Address) (*domain.Account, error) {
	if a, ok := r.l.accounts[addr]; ok {
		return &a, nil
	}
	return nil, nil
}

func (r memAccounts) Create(_ context.Context, _ pgx.Tx, a *domain.Account) error {
	r.l.accounts[a.Address] = *a
	return nil
}

func (r memAccounts) UpdateBalance(_ context.Context, _ pgx.Tx, addr domain.Address, balance uint64) error {
	a := r.l.accounts[addr]
	a.Balance = balance
	r.l.accounts[addr] = a
	return nil
}

type memBets struct{ l *memLedger }

func (r memBets) Create(_ context.Context, _ pgx.Tx, b *domain.Bet) (bool, error) {
	if _, ok := r.l.bets[b.Address]; ok {
		return false, nil
	}
	r.l.bets[b.Address] = *b
	return true, nil
}

func (r memBets) Get(_ context.Context, addr domain.Address) (*domain.Bet, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if b, ok := r.l.bets[addr]; ok {
		return &b, nil
	}
	return nil, nil
}

func (r memBets) GetForUpdate(_ context.Context, _ pgx.Tx, addr domain.Address) (*domain.Bet, error) {
	if b, ok := r.l.bets[addr]; ok {
		return &b, nil
	}
	return nil, nil
}

func (r memBets) Delete(_ context.Context, _ pgx.Tx, addr domain.Address) error {
	delete(r.l.bets, addr)
	return nil
}

func (r memBets) ListByPlayer(_ context.Context, player domain.Address) ([]domain.Bet, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	var out []domain.Bet
	for _, b := range r.l.bets {
		if b.Player == player {
			out = append(out, b)
		}
	}
	return out, nil
}

type memSettlements struct{ l *memLedger }

func (r memSettlements) Create(_ context.Context, _ pgx.Tx, s *domain.Settlement) error {
	r.l.settlements = append(r.l.settlements, *s)
	return nil
}

func (r memSettlements) GetByBet(_ context.Context, bet domain.Address) (*domain.Settlement, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	for i := len(r.l.settlements) - 1; i >= 0; i-- {
		if r.l.settlements[i].Bet == bet {
			s := r.l.settlements[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (r memSettlements) GetVaultStats(_ context.Context, vault domain.Address) (*ports.VaultStats, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	stats := &ports.VaultStats{}
	for _, s := range r.l.settlements {
		if s.Vault != vault {
			continue
		}
		stats.TotalStaked += s.Amount
		switch s.Kind {
		case domain.SettlementResolved:
			stats.Resolved++
			stats.TotalPaid += s.Payout
			if s.Payout > 0 {
				stats.Wins++
			}
		case domain.SettlementRefunded:
			stats.Refunded++
		}
	}
	return stats, nil
}

type manualClock struct{ slot atomic.Uint64 }

func (c *manualClock) CurrentSlot(_ context.Context) (uint64, error) {
	return c.slot.Load(), nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[domain.Address]domain.Settlement
}

func (c *memCache) Get(_ context.Context, bet domain.Address) (*domain.Settlement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.entries[bet]; ok {
		return &s, nil
	}
	return nil, nil
}

func (c *memCache) Set(_ context.Context, s *domain.Settlement, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[domain.Address]domain.Settlement)
	}
	c.entries[s.Bet] = *s
	return nil
}
