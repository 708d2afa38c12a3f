package database

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory CacheStore with TTL, used in tests and as a
// degraded mode when Redis is unavailable.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	timestamp time.Time
	ttl       time.Duration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[key]
	if !ok {
		return "", false, nil
	}
	if entry.ttl > 0 && time.Since(entry.timestamp) > entry.ttl {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = memoryEntry{value: value, timestamp: time.Now(), ttl: ttl}
	return nil
}
