// Package file keeps key-value pairs in a single JSON file. Every write
// replaces the file atomically and is synced to disk before it returns.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vendorhub/storefront/internal/core/ports"
)

const filePerm = 0o600

type Config struct {
	Path string
}

type Store struct {
	path string
	log  zerolog.Logger

	mu   sync.Mutex
	data map[string]string
	// corrupt is set while the file on disk holds unparseable content.
	corrupt bool
}

var _ ports.KeyValueStore = (*Store)(nil)

// New opens the store at cfg.Path, creating its directory if needed. A file
// that cannot be parsed is treated as empty and replaced on the next write.
func New(cfg Config, log zerolog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("file store: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("file store: create dir: %w", err)
	}

	s := &Store{
		path: cfg.Path,
		log:  log.With().Str("path", cfg.Path).Logger(),
		data: make(map[string]string),
	}

	raw, err := os.ReadFile(cfg.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("file store: read: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.data); err != nil {
			s.log.Warn().Err(err).Msg("session file unreadable, starting empty")
			s.data = make(map[string]string)
			s.corrupt = true
		}
	}
	return s, nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.copyLocked()
	next[key] = value
	if err := s.persist(next); err != nil {
		return fmt.Errorf("file store: set %s: %w", key, err)
	}
	s.data = next
	s.corrupt = false
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.copyLocked()
	for _, k := range keys {
		delete(next, k)
	}
	if len(next) == len(s.data) && !s.corrupt {
		return nil
	}
	if err := s.persist(next); err != nil {
		return fmt.Errorf("file store: delete: %w", err)
	}
	s.data = next
	s.corrupt = false
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) copyLocked() map[string]string {
	cp := make(map[string]string, len(s.data)+1)
	for k, v := range s.data {
		cp[k] = v
	}
	return cp
}

func (s *Store) persist(data map[string]string) (err error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err = tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
