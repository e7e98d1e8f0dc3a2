package prefs

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps preferences in process memory.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates a store whose entries expire after ttl
// (cache.NoExpiration keeps them).
func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.New(ttl, cleanupInterval)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*Preferences, error) {
	v, ok := s.cache.Get(userID)
	if !ok {
		return nil, ErrNotFound
	}
	p := v.(Preferences)
	return &p, nil
}

func (s *MemoryStore) Set(_ context.Context, userID string, p Preferences) error {
	s.cache.SetDefault(userID, p)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.cache.Delete(userID)
	return nil
}
