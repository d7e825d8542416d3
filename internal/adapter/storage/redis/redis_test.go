package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"provably-fair-dice/config"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, client
}

func TestNewClient(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := config.RedisConfig{Host: s.Host(), Port: mustPort(t, s.Port())}

	client, err := NewClient(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	clock := NewSlotClock(client)
	assert.Equal(t, "redis", clock.Name())
	assert.NoError(t, clock.Ping(context.Background()))
}

func TestClientOptions(t *testing.T) {
	opts := clientOptions(config.RedisConfig{
		Host:        "redis.local",
		Port:        6380,
		DB:          2,
		PoolSize:    8,
		DialTimeout: time.Second,
		OpTimeout:   250 * time.Millisecond,
	})

	assert.Equal(t, "redis.local:6380", opts.Addr)
	assert.Equal(t, "provably-fair-dice", opts.ClientName)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 8, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)
	assert.Equal(t, 250*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, 250*time.Millisecond, opts.WriteTimeout)
}

func TestNewClient_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := config.RedisConfig{Host: s.Host(), Port: mustPort(t, s.Port())}
	s.Close()

	_, err := NewClient(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestSlotClock_PingFailsWhenRedisDown(t *testing.T) {
	s, client := newTestClient(t)
	clock := NewSlotClock(client)
	s.Close()

	assert.Error(t, clock.Ping(context.Background()))
}

func mustPort(t *testing.T, port string) int {
	t.Helper()
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return p
}
