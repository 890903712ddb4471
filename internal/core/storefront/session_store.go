package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/ports"
)

// Storage keys of the persisted session. They are the whole on-disk contract.
const (
	TokenKey = "token"
	UserKey  = "user"
)

var errInvalidSession = errors.New("invalid session")

// SessionStore holds the authenticated identity and its credential and keeps
// them in durable storage across restarts.
type SessionStore struct {
	storage ports.KeyValueStore
	log     zerolog.Logger

	mu      sync.Mutex
	current *domain.Session
}

func NewSessionStore(storage ports.KeyValueStore, log zerolog.Logger) *SessionStore {
	return &SessionStore{storage: storage, log: log}
}

// Restore loads the persisted session, if any. A persisted pair that cannot be
// used is purged. Restore never fails: any problem yields the unauthenticated
// session (nil).
func (s *SessionStore) Restore(ctx context.Context) *domain.Session {
	token, hasToken, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		s.log.Warn().Err(err).Msg("session storage unreadable, starting unauthenticated")
		return s.set(nil)
	}
	rawUser, hasUser, err := s.storage.Get(ctx, UserKey)
	if err != nil {
		s.log.Warn().Err(err).Msg("session storage unreadable, starting unauthenticated")
		return s.set(nil)
	}

	if !hasToken && !hasUser {
		return s.set(nil)
	}

	session, err := decodeSession(token, rawUser, hasToken && hasUser)
	if err != nil {
		s.log.Warn().Err(err).Msg("purging unusable persisted session")
		if delErr := s.storage.Delete(ctx, TokenKey, UserKey); delErr != nil {
			s.log.Error().Err(delErr).Msg("failed to purge persisted session")
		}
		return s.set(nil)
	}

	s.log.Debug().Str("user_id", session.Identity.ID).Str("role", session.Identity.Role.String()).Msg("session restored")
	return s.set(session)
}

func decodeSession(token, rawUser string, complete bool) (*domain.Session, error) {
	if !complete {
		return nil, fmt.Errorf("%w: token and user must be stored together", errInvalidSession)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: empty credential", errInvalidSession)
	}
	var identity domain.Identity
	if err := json.Unmarshal([]byte(rawUser), &identity); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidSession, err)
	}
	if !identity.Valid() {
		return nil, fmt.Errorf("%w: identity %q with role %q", errInvalidSession, identity.ID, identity.Role)
	}
	return &domain.Session{Identity: identity, Credential: domain.Credential(token)}, nil
}

// Establish makes (identity, credential) the current session and persists it,
// replacing any previous one. On a storage failure the current session is
// left as it was and the error is returned.
func (s *SessionStore) Establish(ctx context.Context, identity domain.Identity, credential domain.Credential) error {
	if credential == "" {
		return fmt.Errorf("establish session: %w: empty credential", domain.ErrValidation)
	}
	if !identity.Valid() {
		return fmt.Errorf("establish session: %w: identity needs an id and a known role", domain.ErrValidation)
	}

	rawUser, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("establish session: encode identity: %w", err)
	}
	if err := s.storage.Set(ctx, TokenKey, string(credential)); err != nil {
		return fmt.Errorf("establish session: persist token: %w", err)
	}
	if err := s.storage.Set(ctx, UserKey, string(rawUser)); err != nil {
		// a token without its user would be purged on the next Restore anyway
		if delErr := s.storage.Delete(ctx, TokenKey); delErr != nil {
			s.log.Error().Err(delErr).Msg("failed to roll back persisted token")
		}
		return fmt.Errorf("establish session: persist user: %w", err)
	}

	s.set(&domain.Session{Identity: identity, Credential: credential})
	s.log.Info().Str("user_id", identity.ID).Str("role", identity.Role.String()).Msg("session established")
	return nil
}

// Clear drops the current session and removes its persisted form. The
// in-memory session is cleared even when storage fails.
func (s *SessionStore) Clear(ctx context.Context) error {
	s.set(nil)
	if err := s.storage.Delete(ctx, TokenKey, UserKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.log.Info().Msg("session cleared")
	return nil
}

// Current returns a copy of the current session, or nil when unauthenticated.
func (s *SessionStore) Current() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

func (s *SessionStore) set(session *domain.Session) *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = session
	if session == nil {
		return nil
	}
	cp := *session
	return &cp
}
