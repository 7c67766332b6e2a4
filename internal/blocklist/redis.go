// Package blocklist provides the Redis-backed revoked-token store. The
// Postgres fallback lives in internal/store; both satisfy the Blocklist
// interface the auth middleware consumes.
package blocklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopcart/apiserver/config"
)

// RedisBlocklist stores revoked jtis as Redis keys whose TTL matches the
// token's remaining lifetime, so pruning is automatic.
type RedisBlocklist struct {
	client *redis.Client
	prefix string
}

// NewRedisBlocklist constructs a RedisBlocklist from config and verifies
// connectivity with a ping.
func NewRedisBlocklist(ctx context.Context, cfg config.RedisConfig) (*RedisBlocklist, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedisBlocklistWithClient(client), nil
}

// NewRedisBlocklistWithClient wraps an existing client, used by tests.
func NewRedisBlocklistWithClient(client *redis.Client) *RedisBlocklist {
	return &RedisBlocklist{
		client: client,
		prefix: "revoked",
	}
}

func (b *RedisBlocklist) key(jti string) string {
	return fmt.Sprintf("%s:%s", b.prefix, jti)
}

// Revoke marks a jti revoked until the token's natural expiry. An already
// expired token needs no entry.
func (b *RedisBlocklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, b.key(jti), "1", ttl).Err()
}

// IsRevoked reports whether the jti is currently blocklisted.
func (b *RedisBlocklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if err := b.client.Get(ctx, b.key(jti)).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Close releases the underlying client.
func (b *RedisBlocklist) Close() error {
	return b.client.Close()
}
