package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"provably-fair-dice/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// SettlementCache implements ports.SettlementCache. Settlements never change
// once written, so entries only need a TTL to bound memory.
type SettlementCache struct {
	client *goredis.Client
	prefix string
}

func NewSettlementCache(client *goredis.Client) *SettlementCache {
	return &SettlementCache{
		client: client,
		prefix: "settlement:",
	}
}

// Get returns nil, nil on a miss.
func (c *SettlementCache) Get(ctx context.Context, bet domain.Address) (*domain.Settlement, error) {
	raw, err := c.client.Get(ctx, c.prefix+bet.String()).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis settlement get: %w", err)
	}

	var s domain.Settlement
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode cached settlement: %w", err)
	}
	return &s, nil
}

func (c *SettlementCache) Set(ctx context.Context, s *domain.Settlement, ttl time.Duration) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settlement: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+s.Bet.String(), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis settlement set: %w", err)
	}
	return nil
}
