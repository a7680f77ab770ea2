package cache

import (
	"context"
	"time"
)

// Entry is a cached value plus the time it was fetched. Staleness is judged by the reader,
// eviction by the store.
type Entry struct {
	Value    []byte    `json:"v"`
	StoredAt time.Time `json:"t"`
}

// Store keeps entries until they are evicted. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, keys ...string) error
}
