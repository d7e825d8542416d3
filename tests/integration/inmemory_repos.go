package integration

import (
	"context"
	"fmt"
	"sync"

	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// inMemoryLedger stands in for the PostgreSQL tables of the ledger. A
// transaction holds mu from Begin until Commit or Rollback, which gives the
// same serialization the row locks give in PostgreSQL.
type inMemoryLedger struct {
	mu          sync.Mutex
	accounts    map[domain.Address]domain.Account
	bets        map[domain.Address]domain.Bet
	settlements []domain.Settlement
}

func newInMemoryLedger() *inMemoryLedger {
	return &inMemoryLedger{
		accounts: make(map[domain.Address]domain.Account),
		bets:     make(map[domain.Address]domain.Bet),
	}
}

// total returns every balance plus the deposits held by open bets.
func (l *inMemoryLedger) total() uint64 {
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

// --- In-Memory Transactor ---

func (l *inMemoryLedger) Begin(ctx context.Context) (pgx.Tx, error) {
	l.mu.Lock()
	tx := &ledgerTx{
		ledger:      l,
		accounts:    make(map[domain.Address]domain.Account, len(l.accounts)),
		bets:        make(map[domain.Address]domain.Bet, len(l.bets)),
		settlements: len(l.settlements),
	}
	for k, v := range l.accounts {
		tx.accounts[k] = v
	}
	for k, v := range l.bets {
		tx.bets[k] = v
	}
	return tx, nil
}

// ledgerTx is a pgx.Tx whose only real behavior is Commit and Rollback.
type ledgerTx struct {
	ledger      *inMemoryLedger
	accounts    map[domain.Address]domain.Account
	bets        map[domain.Address]domain.Bet
	settlements int
	done        bool
}

func (t *ledgerTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *ledgerTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.ledger.mu.Unlock()
	return nil
}

func (t *ledgerTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.ledger.accounts = t.accounts
	t.ledger.bets = t.bets
	t.ledger.settlements = t.ledger.settlements[:t.settlements]
	t.ledger.mu.Unlock()
	return nil
}

func (t *ledgerTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *ledgerTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *ledgerTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *ledgerTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *ledgerTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *ledgerTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *ledgerTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *ledgerTx) Conn() *pgx.Conn { return nil }

// --- In-Memory Account Repo ---
// Methods taking a tx run while that tx holds the ledger lock.

type inMemoryAccountRepo struct{ l *inMemoryLedger }

func (r *inMemoryAccountRepo) Get(ctx context.Context, addr domain.Address) (*domain.Account, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if a, ok := r.l.accounts[addr]; ok {
		return &a, nil
	}
	return nil, nil
}

func (r *inMemoryAccountRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, addr domain.Address) (*domain.Account, error) {
	if a, ok := r.l.accounts[addr]; ok {
		return &a, nil
	}
	return nil, nil
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	if _, ok := r.l.accounts[a.Address]; ok {
		return fmt.Errorf("account already exists")
	}
	r.l.accounts[a.Address] = *a
	return nil
}

func (r *inMemoryAccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, addr domain.Address, balance uint64) error {
	a, ok := r.l.accounts[addr]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.Balance = balance
	r.l.accounts[addr] = a
	return nil
}

// --- In-Memory Bet Repo ---

type inMemoryBetRepo struct{ l *inMemoryLedger }

func (r *inMemoryBetRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Bet) (bool, error) {
	if _, ok := r.l.bets[b.Address]; ok {
		return false, nil
	}
	r.l.bets[b.Address] = *b
	return true, nil
}

func (r *inMemoryBetRepo) Get(ctx context.Context, addr domain.Address) (*domain.Bet, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if b, ok := r.l.bets[addr]; ok {
		return &b, nil
	}
	return nil, nil
}

func (r *inMemoryBetRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, addr domain.Address) (*domain.Bet, error) {
	if b, ok := r.l.bets[addr]; ok {
		return &b, nil
	}
	return nil, nil
}

func (r *inMemoryBetRepo) Delete(ctx context.Context, tx pgx.Tx, addr domain.Address) error {
	delete(r.l.bets, addr)
	return nil
}

func (r *inMemoryBetRepo) ListByPlayer(ctx context.Context, player domain.Address) ([]domain.Bet, error) {
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

// --- In-Memory Settlement Repo ---

type inMemorySettlementRepo struct{ l *inMemoryLedger }

func (r *inMemorySettlementRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.Settlement) error {
	r.l.settlements = append(r.l.settlements, *s)
	return nil
}

func (r *inMemorySettlementRepo) GetByBet(ctx context.Context, bet domain.Address) (*domain.Settlement, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	for i := range r.l.settlements {
		if r.l.settlements[i].Bet == bet {
			s := r.l.settlements[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (r *inMemorySettlementRepo) GetVaultStats(ctx context.Context, vault domain.Address) (*ports.VaultStats, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	stats := &ports.VaultStats{}
	for _, s := range r.l.settlements {
		if s.Vault != vault {
			continue
		}
		stats.TotalStaked += s.Amount
		if s.Kind == domain.SettlementRefunded {
			stats.Refunded++
			continue
		}
		stats.Resolved++
		stats.TotalPaid += s.Payout
		if s.Payout > 0 {
			stats.Wins++
		}
	}
	return stats, nil
}

// --- In-Memory House Repo ---

type inMemoryHouseRepo struct {
	mu     sync.RWMutex
	houses map[domain.Address]domain.House
}

func newInMemoryHouseRepo() *inMemoryHouseRepo {
	return &inMemoryHouseRepo{houses: make(map[domain.Address]domain.House)}
}

func (r *inMemoryHouseRepo) Create(ctx context.Context, h *domain.House) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.houses[h.Address]; ok {
		return false, nil
	}
	r.houses[h.Address] = *h
	return true, nil
}

func (r *inMemoryHouseRepo) Get(ctx context.Context, addr domain.Address) (*domain.House, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.houses[addr]; ok {
		return &h, nil
	}
	return nil, nil
}

func (r *inMemoryHouseRepo) UpdateWebhookURL(ctx context.Context, addr domain.Address, webhookURL *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.houses[addr]
	if !ok {
		return fmt.Errorf("house not found")
	}
	h.WebhookURL = webhookURL
	r.houses[addr] = h
	return nil
}

// --- In-Memory Webhook Repo ---

type inMemoryWebhookRepo struct {
	mu   sync.RWMutex
	logs map[string]domain.WebhookDeliveryLog
}

func newInMemoryWebhookRepo() *inMemoryWebhookRepo {
	return &inMemoryWebhookRepo{logs: make(map[string]domain.WebhookDeliveryLog)}
}

func (r *inMemoryWebhookRepo) Create(ctx context.Context, l *domain.WebhookDeliveryLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[l.ID.String()] = *l
	return nil
}

func (r *inMemoryWebhookRepo) Update(ctx context.Context, l *domain.WebhookDeliveryLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[l.ID.String()] = *l
	return nil
}

func (r *inMemoryWebhookRepo) ListByBet(ctx context.Context, bet domain.Address) ([]domain.WebhookDeliveryLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WebhookDeliveryLog
	for _, l := range r.logs {
		if l.Bet == bet {
			out = append(out, l)
		}
	}
	return out, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, l *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *l)
	return nil
}

func (r *inMemoryAuditRepo) actions() []domain.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}
