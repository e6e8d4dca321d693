// Package memory provides an in-memory implementation of the
// usagewatch.Storage interface. It does not survive restarts and is
// intended for testing and development.
package memory

import (
	"context"
	"sync"

	"github.com/usagewatch/usagewatch/pkg/usagewatch"
)

// Storage implements usagewatch.Storage using an in-memory map.
type Storage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates a new in-memory storage adapter.
func New() *Storage {
	return &Storage{
		data: make(map[string][]byte),
	}
}

// Get implements usagewatch.Storage.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, usagewatch.ErrKeyNotFound
	}

	// Return a copy to prevent external mutations.
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set implements usagewatch.Storage.
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return nil
}

// Delete implements usagewatch.Storage.
func (s *Storage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Keys implements usagewatch.Storage.
func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	return keys, nil
}

// Clear removes all data (useful for testing).
func (s *Storage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string][]byte)
}
