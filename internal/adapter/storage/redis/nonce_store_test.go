package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonceStore_CheckAndSet_NewNonce(t *testing.T) {
	_, client := newTestClient(t)
	store := NewNonceStore(client)

	ok, err := store.CheckAndSet(context.Background(), "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", "nonce-abc", 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "new nonce should return true")
}

func TestNonceStore_CheckAndSet_ReplayNonce(t *testing.T) {
	_, client := newTestClient(t)
	store := NewNonceStore(client)
	ctx := context.Background()

	ok, err := store.CheckAndSet(ctx, "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", "nonce-xyz", 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.CheckAndSet(ctx, "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", "nonce-xyz", 2*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "replayed nonce should return false")
}

func TestNonceStore_CheckAndSet_DifferentSigners(t *testing.T) {
	_, client := newTestClient(t)
	store := NewNonceStore(client)
	ctx := context.Background()

	ok1, err := store.CheckAndSet(ctx, "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", "nonce-123", 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok1)

	ok2, err := store.CheckAndSet(ctx, "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", "nonce-123", 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok2, "same nonce for a different signer should be valid")
}

func TestNonceStore_CheckAndSet_ExpiredNonce(t *testing.T) {
	s, client := newTestClient(t)
	store := NewNonceStore(client)
	ctx := context.Background()

	ok, err := store.CheckAndSet(ctx, "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", "nonce-expire", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	s.FastForward(2 * time.Second)

	ok, err = store.CheckAndSet(ctx, "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", "nonce-expire", time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired nonce should be accepted again")
}

func TestNonceStore_KeyIsBounded(t *testing.T) {
	s, client := newTestClient(t)
	store := NewNonceStore(client)
	signer := "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

	ok, err := store.CheckAndSet(context.Background(), signer, strings.Repeat("n", 4096), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	keys := s.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "nonce:"+signer+":"))
	assert.Len(t, keys[0], len("nonce:"+signer+":")+32)
	assert.Equal(t, time.Minute, s.TTL(keys[0]))
}

func TestNonceStore_CheckAndSet_RedisDown(t *testing.T) {
	s, client := newTestClient(t)
	store := NewNonceStore(client)
	s.Close()

	_, err := store.CheckAndSet(context.Background(), "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", "nonce", time.Second)
	assert.Error(t, err)
}
