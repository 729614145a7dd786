// Package store provides the durable key-value store the result cache
// mirrors into. Core logic depends only on the Store interface, never
// on a specific storage technology.
package store

import "sync"

// Store is the injected persistence collaborator.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
	// Keys lists stored keys with the given prefix.
	Keys(prefix string) ([]string, error)
}

// MemoryStore is an in-process Store, used in tests and as a fallback
// when no database path is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	ret := make([]byte, len(value))
	copy(ret, value)
	return ret, true, nil
}

func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return nil
}

func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]string, 0, len(s.data))
	for key := range s.data {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			ret = append(ret, key)
		}
	}
	return ret, nil
}
