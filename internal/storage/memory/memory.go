// Package memory is a process-local snapshot backend.
package memory

import (
	"context"
	"sync"

	"cassa/internal/storage"
)

type Store struct {
	mu    sync.Mutex
	items map[string][]byte
	// FailSave, when set, is returned by every write. Tests use it to
	// simulate an unavailable backend.
	FailSave error
}

func New() *Store {
	return &Store{items: make(map[string][]byte)}
}

func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.items[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *Store) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	s.items[key] = append([]byte(nil), data...)
	return nil
}

// SaveAll stores every snapshot or none.
func (s *Store) SaveAll(_ context.Context, snapshots map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	for k, v := range snapshots {
		s.items[k] = append([]byte(nil), v...)
	}
	return nil
}

// Put seeds a raw snapshot, bypassing FailSave.
func (s *Store) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), data...)
}
