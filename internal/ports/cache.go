package ports

import (
	"context"
	"time"
)

// Cache is the hot-state cache contract; optional per spec's REDIS_URL env
// var. Used to cache EVSEStatus / last-seen blobs, falling back to local
// in-memory storage when REDIS_URL is unset.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}
