package kv

import (
	"context"
	"time"
)

// KV is a string key-value store with per-key expiry.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key string, value string, ttl time.Duration) error
}
