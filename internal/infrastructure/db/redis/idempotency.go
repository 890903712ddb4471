package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vendorhub/storefront/internal/core/ports"
)

const idempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers submission keys in Redis.
// Key format: idem:product:<vendor_id>:<key>
type IdempotencyStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

func NewIdempotencyStore(client redis.UniversalClient) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: idempotencyTTL}
}

func (s *IdempotencyStore) Lookup(ctx context.Context, vendorID, key string) (string, bool, error) {
	id, err := s.client.Get(ctx, s.key(vendorID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return id, true, nil
}

// Remember keeps the first product recorded for a key.
func (s *IdempotencyStore) Remember(ctx context.Context, vendorID, key, productID string) error {
	if err := s.client.SetNX(ctx, s.key(vendorID, key), productID, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(vendorID, key string) string {
	return fmt.Sprintf("idem:product:%s:%s", vendorID, key)
}
