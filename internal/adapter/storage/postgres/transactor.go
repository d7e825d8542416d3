package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// ledgerTxOptions is used for every ledger transaction. Row locks taken with
// SELECT ... FOR UPDATE serialize the balance changes, so read committed is
// enough.
var ledgerTxOptions = pgx.TxOptions{
	IsoLevel:   pgx.ReadCommitted,
	AccessMode: pgx.ReadWrite,
}

// Transactor implements ports.DBTransactor.
type Transactor struct {
	pool Pool
}

func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.BeginTx(ctx, ledgerTxOptions)
}
