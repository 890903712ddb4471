// Package redis holds the Redis pieces shared by both binaries: the
// connection used by the storefront's session storage and the marketplace
// backend's idempotency store.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 5 * time.Second

// Config selects the Redis instance. Name is reported as the client name,
// so session and idempotency connections can be told apart in CLIENT LIST.
type Config struct {
	Addr     string
	Password string
	DB       int
	Name     string
	Timeout  time.Duration
}

// Connect dials Redis and fails unless it answers a ping within cfg.Timeout.
// The caller owns the returned client.
func Connect(ctx context.Context, cfg Config) (redis.UniversalClient, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   cfg.Name,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	if err := Ping(ctx, client, timeout); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect %s redis at %s: %w", cfg.Name, cfg.Addr, err)
	}
	return client, nil
}

// Ping is the readiness check for an open connection.
func Ping(ctx context.Context, client redis.UniversalClient, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return client.Ping(ctx).Err()
}
