package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUStore is an in-process Store bounded by size and evicting entries after ttl.
type LRUStore struct {
	lru *expirable.LRU[string, Entry]
}

var _ Store = (*LRUStore)(nil)

func NewLRUStore(size int, ttl time.Duration) *LRUStore {
	return &LRUStore{lru: expirable.NewLRU[string, Entry](size, nil, ttl)}
}

func (s *LRUStore) Get(_ context.Context, key string) (Entry, bool, error) {
	entry, ok := s.lru.Get(key)
	return entry, ok, nil
}

func (s *LRUStore) Set(_ context.Context, key string, entry Entry) error {
	s.lru.Add(key, entry)
	return nil
}

func (s *LRUStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.lru.Remove(key)
	}
	return nil
}

func (s *LRUStore) Len() int {
	return s.lru.Len()
}
