package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"provably-fair-dice/config"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:             "localhost",
		Port:             5432,
		User:             "dice",
		Password:         "secret",
		DBName:           "ledger",
		SSLMode:          "disable",
		MaxConns:         20,
		MinConns:         5,
		ConnMaxLifetime:  30 * time.Minute,
		StatementTimeout: 5 * time.Second,
	}

	poolCfg, err := poolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(20), poolCfg.MaxConns)
	assert.Equal(t, int32(5), poolCfg.MinConns)
	assert.Equal(t, 30*time.Minute, poolCfg.MaxConnLifetime)
	assert.Equal(t, "localhost", poolCfg.ConnConfig.Host)
	assert.Equal(t, uint16(5432), poolCfg.ConnConfig.Port)
	assert.Equal(t, "ledger", poolCfg.ConnConfig.Database)
	assert.Equal(t, "provably-fair-dice", poolCfg.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "5000", poolCfg.ConnConfig.RuntimeParams["statement_timeout"])
}

func TestPoolConfig_NoStatementTimeout(t *testing.T) {
	poolCfg, err := poolConfig(config.DatabaseConfig{
		Host: "localhost", Port: 5432, User: "dice", DBName: "ledger", SSLMode: "disable", MaxConns: 4,
	})
	require.NoError(t, err)
	assert.NotContains(t, poolCfg.ConnConfig.RuntimeParams, "statement_timeout")
}

func TestHealthCheck_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()
	mock.ExpectQuery("to_regclass").
		WithArgs([]string{"accounts", "bets", "settlements"}).
		WillReturnRows(pgxmock.NewRows([]string{"missing"}).AddRow([]string{}))

	hc := NewHealthCheck(mock)
	assert.Equal(t, "postgresql", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck_MissingSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()
	mock.ExpectQuery("to_regclass").
		WithArgs([]string{"accounts", "bets", "settlements"}).
		WillReturnRows(pgxmock.NewRows([]string{"missing"}).AddRow([]string{"settlements"}))

	err = NewHealthCheck(mock).Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, "ledger schema missing tables: [settlements]", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck_Unreachable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = NewHealthCheck(mock).Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping")
}

func TestTransactor_BeginReadCommitted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	mock.ExpectRollback()

	tx, err := NewTransactor(mock).Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
