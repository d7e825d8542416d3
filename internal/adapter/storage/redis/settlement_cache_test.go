package redis

import (
	"context"
	"testing"
	"time"

	"provably-fair-dice/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementCache_SetAndGet(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewSettlementCache(client)
	ctx := context.Background()

	roll := uint8(42)
	var bet domain.Address
	bet[0] = 9
	s := &domain.Settlement{
		ID:        uuid.New(),
		Bet:       bet,
		Kind:      domain.SettlementResolved,
		Target:    50,
		Roll:      &roll,
		Amount:    1_000_000,
		Payout:    2_010_204,
		Signature: []byte{1, 2, 3},
		Slot:      77,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, cache.Set(ctx, s, time.Hour))

	got, err := cache.Get(ctx, bet)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.Bet, got.Bet)
	assert.Equal(t, uint8(42), *got.Roll)
	assert.Equal(t, s.Payout, got.Payout)
	assert.Equal(t, s.Signature, got.Signature)
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))
}

func TestSettlementCache_Miss(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewSettlementCache(client)

	got, err := cache.Get(context.Background(), domain.Address{1})
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSettlementCache_Expires(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewSettlementCache(client)
	ctx := context.Background()

	settlement := &domain.Settlement{ID: uuid.New(), Bet: domain.Address{2}, Kind: domain.SettlementRefunded}
	require.NoError(t, cache.Set(ctx, settlement, time.Minute))

	s.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, settlement.Bet)
	assert.NoError(t, err)
	assert.Nil(t, got)
}
