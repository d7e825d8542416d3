package postgres

import (
	"context"
	"errors"
	"fmt"

	"provably-fair-dice/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Get fetches an account without locking. Returns nil, nil when absent.
func (r *AccountRepo) Get(ctx context.Context, address domain.Address) (*domain.Account, error) {
	query := `SELECT address, balance::text, created_at, updated_at
		FROM accounts WHERE address = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, address.String()))
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// GetForUpdate fetches an account with pessimistic locking.
// This MUST be called within a transaction.
func (r *AccountRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, address domain.Address) (*domain.Account, error) {
	query := `SELECT address, balance::text, created_at, updated_at
		FROM accounts WHERE address = $1 FOR UPDATE`

	a, err := scanAccount(tx.QueryRow(ctx, query, address.String()))
	if err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return a, nil
}

// Create inserts an account within a transaction.
func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `INSERT INTO accounts (address, balance, created_at, updated_at)
		VALUES ($1, $2::numeric, $3, $4)`

	_, err := tx.Exec(ctx, query, a.Address.String(), formatAmount(a.Balance), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// UpdateBalance overwrites a locked account's balance within a transaction.
func (r *AccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, address domain.Address, balance uint64) error {
	query := `UPDATE accounts SET balance = $1::numeric, updated_at = NOW() WHERE address = $2`

	tag, err := tx.Exec(ctx, query, formatAmount(balance), address.String())
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", address)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var address, balance string
	a := &domain.Account{}
	if err := row.Scan(&address, &balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var err error
	if a.Address, err = scanAddress(address); err != nil {
		return nil, err
	}
	if a.Balance, err = scanAmount(balance); err != nil {
		return nil, err
	}
	return a, nil
}
