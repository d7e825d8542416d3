package service

import (
	"context"
	"fmt"
	"math/bits"
	"sort"
	"time"

	"provably-fair-dice/internal/core/domain"
	"provably-fair-dice/internal/core/ports"
	"provably-fair-dice/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

// ledgerTx is the set of accounts one operation touches, locked for the
// lifetime of its database transaction. Balance changes are applied in
// memory and written back by flush, so a failed guard never leaves a
// partial write behind even before the rollback.
type ledgerTx struct {
	repo     ports.AccountRepository
	tx       pgx.Tx
	accounts map[domain.Address]*domain.Account
	fresh    map[domain.Address]bool
	dirty    map[domain.Address]bool
}

// lockAccounts takes row locks on every address in ascending order so two
// operations touching the same pair of accounts cannot deadlock. Absent
// accounts are not created until they are credited.
func lockAccounts(ctx context.Context, repo ports.AccountRepository, tx pgx.Tx, addrs ...domain.Address) (*ledgerTx, error) {
	l := &ledgerTx{
		repo:     repo,
		tx:       tx,
		accounts: make(map[domain.Address]*domain.Account, len(addrs)),
		fresh:    make(map[domain.Address]bool),
		dirty:    make(map[domain.Address]bool),
	}

	for _, addr := range sortedUnique(addrs) {
		account, err := repo.GetForUpdate(ctx, tx, addr)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("lock account %s: %w", addr, err))
		}
		l.accounts[addr] = account
	}
	return l, nil
}

// Balance returns the in-transaction balance, 0 for an absent account.
func (l *ledgerTx) Balance(addr domain.Address) uint64 {
	if a := l.accounts[addr]; a != nil {
		return a.Balance
	}
	return 0
}

func (l *ledgerTx) debit(addr domain.Address, amount uint64) error {
	l.mustBeLocked(addr)
	if amount == 0 {
		return nil
	}
	a := l.accounts[addr]
	if a == nil || a.Balance < amount {
		return apperror.ErrInsufficientFunds()
	}
	a.Balance -= amount
	l.dirty[addr] = true
	return nil
}

func (l *ledgerTx) credit(addr domain.Address, amount uint64) error {
	l.mustBeLocked(addr)
	if amount == 0 {
		return nil
	}
	a := l.accounts[addr]
	if a == nil {
		now := time.Now().UTC()
		a = &domain.Account{Address: addr, CreatedAt: now, UpdatedAt: now}
		l.accounts[addr] = a
		l.fresh[addr] = true
	}
	sum, carry := bits.Add64(a.Balance, amount, 0)
	if carry != 0 {
		return apperror.ErrArithmeticOverflow(domain.ErrArithmetic)
	}
	a.Balance = sum
	l.dirty[addr] = true
	return nil
}

// transfer moves amount between two locked accounts, creating the
// destination if it does not exist yet.
func (l *ledgerTx) transfer(from, to domain.Address, amount uint64) error {
	if err := l.debit(from, amount); err != nil {
		return err
	}
	return l.credit(to, amount)
}

// flush writes every changed account back in address order.
func (l *ledgerTx) flush(ctx context.Context) error {
	changed := make([]domain.Address, 0, len(l.dirty))
	for addr := range l.dirty {
		changed = append(changed, addr)
	}

	for _, addr := range sortedUnique(changed) {
		a := l.accounts[addr]
		if l.fresh[addr] {
			if err := l.repo.Create(ctx, l.tx, a); err != nil {
				return apperror.ErrDatabaseError(fmt.Errorf("create account %s: %w", addr, err))
			}
			continue
		}
		if err := l.repo.UpdateBalance(ctx, l.tx, addr, a.Balance); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("update account %s: %w", addr, err))
		}
	}
	l.dirty = make(map[domain.Address]bool)
	l.fresh = make(map[domain.Address]bool)
	return nil
}

func (l *ledgerTx) mustBeLocked(addr domain.Address) {
	if _, ok := l.accounts[addr]; !ok {
		panic(fmt.Sprintf("ledger: account %s used without lock", addr))
	}
}

func sortedUnique(addrs []domain.Address) []domain.Address {
	out := make([]domain.Address, 0, len(addrs))
	seen := make(map[domain.Address]bool, len(addrs))
	for _, a := range addrs {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
