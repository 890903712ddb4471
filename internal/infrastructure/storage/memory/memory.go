// Package memory is an in-process key-value store. Nothing survives the process.
package memory

import (
	"context"
	"sync"

	"github.com/vendorhub/storefront/internal/core/ports"
)

type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ ports.KeyValueStore = (*Store)(nil)

func New() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *Store) Close() error { return nil }
