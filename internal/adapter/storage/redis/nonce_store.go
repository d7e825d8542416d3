package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const noncePrefix = "nonce:"

// NonceStore implements ports.NonceStore. Nonces are client-chosen, so the
// key carries a digest of the nonce rather than the nonce itself.
type NonceStore struct {
	client *goredis.Client
}

func NewNonceStore(client *goredis.Client) *NonceStore {
	return &NonceStore{client: client}
}

// CheckAndSet reports whether this signer has not used nonce within ttl, and
// records it in the same SET NX.
func (s *NonceStore) CheckAndSet(ctx context.Context, signer string, nonce string, ttl time.Duration) (bool, error) {
	fresh, err := s.client.SetNX(ctx, nonceKey(signer, nonce), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis nonce check: %w", err)
	}
	return fresh, nil
}

func nonceKey(signer, nonce string) string {
	sum := sha256.Sum256([]byte(nonce))
	return noncePrefix + signer + ":" + hex.EncodeToString(sum[:16])
}
