package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ai-pulse/pulsekit/core"
	"github.com/ai-pulse/pulsekit/oauth"
	"github.com/ai-pulse/pulsekit/ports"
)

// SessionKey is the fixed storage key holding the single current session.
const SessionKey = "pulse:session"

// SessionStore persists exactly one Session, overwritten atomically on
// every transition, so a restart does not force re-authentication.
type SessionStore struct {
	store ports.Store
}

// NewSessionStore wraps durable storage for session persistence.
func NewSessionStore(store ports.Store) *SessionStore {
	return &SessionStore{store: store}
}

// Get loads the current session. With no prior session it returns a fresh
// unauthenticated one rather than an error.
func (s *SessionStore) Get(ctx context.Context) (*core.Session, error) {
	payload, err := s.store.Get(ctx, SessionKey)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			return &core.Session{State: core.SessionUnauthenticated}, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session core.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// Set overwrites the current session.
func (s *SessionStore) Set(ctx context.Context, session *core.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.store.Set(ctx, SessionKey, string(payload)); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// Clear removes the session and any authorization-request remnants.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if err := oauth.Discard(ctx, s.store); err != nil {
		return fmt.Errorf("failed to clear auth request: %w", err)
	}
	return nil
}
