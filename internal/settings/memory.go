package settings

import (
	"context"
	"sync"
)

// MemoryStore is a process-local store. SetUnavailable makes every call fail,
// which is how a blocked browser storage is reproduced in tests.
type MemoryStore struct {
	mu          sync.RWMutex
	values      map[string]string
	unavailable bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Backend() string { return "memory" }

func (s *MemoryStore) SetUnavailable(v bool) {
	s.mu.Lock()
	s.unavailable = v
	s.mu.Unlock()
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable {
		return "", false, accessError("memory", "get", key, ErrUnavailable)
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return accessError("memory", "set", key, ErrUnavailable)
	}
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Close() error { return nil }
