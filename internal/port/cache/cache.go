// Package cache defines the byte cache used for HTTP read responses and
// idempotent replays.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values by key. A ttl of zero keeps the entry until
// it is evicted or deleted. A miss is (nil, false, nil), not an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
