package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper answers whether a webhook delivery was already processed.
// Providers redeliver on timeout, so handlers must tolerate duplicates.
type Deduper interface {
	// Seen marks the key and reports whether it was already marked.
	Seen(ctx context.Context, key string) (bool, error)
}

const dedupeTTL = 24 * time.Hour

// RedisDeduper implements Deduper with SETNX and a TTL. Entries older than
// the TTL are forgotten; providers stop redelivering well before that.
type RedisDeduper struct {
	client *redis.Client
}

// NewRedisDeduper creates a Redis-backed deduper.
func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

// Seen marks the key and reports whether it was already marked.
func (d *RedisDeduper) Seen(ctx context.Context, key string) (bool, error) {
	set, err := d.client.SetNX(ctx, "webhook:dedupe:"+key, 1, dedupeTTL).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe setnx: %w", err)
	}
	return !set, nil
}

// NoopDeduper never reports a duplicate. Used when Redis is not configured.
type NoopDeduper struct{}

// Seen always reports the key as unseen.
func (NoopDeduper) Seen(ctx context.Context, key string) (bool, error) {
	return false, nil
}
