package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-tenant-portal/internal/metrics"
	"github.com/jrsteele09/go-tenant-portal/internal/retry"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Query caches the results of one kind of read. Entries younger than the stale time are served
// directly; older entries are refetched, and served anyway if the refetch fails transiently.
// Concurrent fetches of the same key share one load, which outlives any single caller's context.
type Query[T any] struct {
	name        string
	store       Store
	stale       time.Duration
	loadTimeout time.Duration
	group       singleflight.Group
	now         func() time.Time
}

const defaultLoadTimeout = 30 * time.Second

type QueryOption[T any] func(*Query[T])

// WithNowTime overrides the clock.
func WithNowTime[T any](now func() time.Time) QueryOption[T] {
	return func(q *Query[T]) {
		q.now = now
	}
}

// WithLoadTimeout bounds a shared load. Callers stop waiting when their own context ends.
func WithLoadTimeout[T any](d time.Duration) QueryOption[T] {
	return func(q *Query[T]) {
		if d > 0 {
			q.loadTimeout = d
		}
	}
}

func NewQuery[T any](name string, store Store, stale time.Duration, opts ...QueryOption[T]) *Query[T] {
	q := &Query[T]{name: name, store: store, stale: stale, loadTimeout: defaultLoadTimeout, now: time.Now}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Fetch returns the cached value for key or loads it.
func (q *Query[T]) Fetch(ctx context.Context, key string, load func(ctx context.Context) (T, error)) (T, error) {
	entry, found, err := q.store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("cache", q.name).Str("key", key).Msg("cache read failed, loading")
		found = false
	}

	var cached T
	if found {
		if err := json.Unmarshal(entry.Value, &cached); err != nil {
			log.Warn().Err(err).Str("cache", q.name).Str("key", key).Msg("discarding undecodable cache entry")
			found = false
		} else if q.now().Sub(entry.StoredAt) < q.stale {
			metrics.CacheLookups.WithLabelValues(q.name, "fresh").Inc()
			return cached, nil
		}
	}

	if found {
		metrics.CacheLookups.WithLabelValues(q.name, "stale").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues(q.name, "miss").Inc()
	}

	results := q.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.loadTimeout)
		defer cancel()
		value, err := load(loadCtx)
		if err != nil {
			return value, err
		}
		q.put(loadCtx, key, value)
		return value, nil
	})

	var res singleflight.Result
	select {
	case res = <-results:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	v, err := res.Val, res.Err
	if err != nil {
		if found && retry.IsTransient(err) {
			log.Warn().Err(err).Str("cache", q.name).Str("key", key).Msg("refetch failed, serving stale entry")
			return cached, nil
		}
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops keys so the next Fetch loads fresh data.
func (q *Query[T]) Invalidate(ctx context.Context, keys ...string) error {
	if err := q.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("[Query Invalidate] %s: %w", q.name, err)
	}
	return nil
}

func (q *Query[T]) put(ctx context.Context, key string, value T) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("cache", q.name).Msg("value not cacheable")
		return
	}
	if err := q.store.Set(ctx, key, Entry{Value: raw, StoredAt: q.now()}); err != nil {
		log.Warn().Err(err).Str("cache", q.name).Str("key", key).Msg("cache write failed")
	}
}
