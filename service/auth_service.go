// Package service orchestrates the login flow and the wallet-gated report
// actions on top of the ports.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ai-pulse/pulsekit/core"
	"github.com/ai-pulse/pulsekit/oauth"
	"github.com/ai-pulse/pulsekit/ports"
)

// AuthService drives the authentication round trip: it hands out the
// authorization URL, consumes the provider's redirect, exchanges the code,
// and keeps the persisted session in step.
type AuthService struct {
	flow     *oauth.Flow
	backend  ports.Backend
	sessions *SessionStore
	log      zerolog.Logger
}

// NewAuthService creates the authentication orchestrator.
func NewAuthService(flow *oauth.Flow, backend ports.Backend, sessions *SessionStore, log zerolog.Logger) *AuthService {
	return &AuthService{
		flow:     flow,
		backend:  backend,
		sessions: sessions,
		log:      log.With().Str("component", "auth").Logger(),
	}
}

// BeginLogin persists a fresh authorization request and returns the
// provider URL to navigate to.
func (s *AuthService) BeginLogin(ctx context.Context) (string, error) {
	return s.flow.Begin(ctx)
}

// CompleteCallback consumes the URL the provider redirected back with and
// advances the session accordingly. A URL without authorization parameters
// (or one failing the state check) leaves the session untouched.
func (s *AuthService) CompleteCallback(ctx context.Context, rawURL string) (*core.Session, error) {
	// Codes, states and tokens stay out of the logs.
	s.log.Debug().Str("url", oauth.CleanURL(rawURL)).Msg("resolving callback")

	outcome, err := s.flow.Resolve(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	switch outcome.Kind {
	case oauth.OutcomeNotApplicable:
		return s.sessions.Get(ctx)

	case oauth.OutcomeProviderError:
		return nil, outcome.Err

	case oauth.OutcomeDirectToken:
		// Backend-mediated redirect: the token is stored unconditionally,
		// then verified before any identity claim is trusted.
		return s.adopt(ctx, outcome.Token, nil)

	case oauth.OutcomeCode:
		return s.exchange(ctx, outcome.Code, outcome.Verifier)

	case oauth.OutcomeImplicit:
		profile, err := oauth.ProfileFromIDToken(outcome.Token)
		if err != nil {
			s.log.Debug().Err(err).Msg("id_token claims unreadable")
			profile = nil
		}
		return s.adopt(ctx, outcome.Token, profile)
	}

	return nil, fmt.Errorf("unhandled callback outcome %d", outcome.Kind)
}

// exchange trades the one-time code for a token. On failure the session is
// left failed; the caller surfaces the error and must not retry.
func (s *AuthService) exchange(ctx context.Context, code, verifier string) (*core.Session, error) {
	pending := &core.Session{State: core.SessionPendingExchange}
	if err := s.sessions.Set(ctx, pending); err != nil {
		return nil, err
	}

	token, err := s.backend.ExchangeCode(ctx, code, verifier, s.flow.Config().RedirectURI)
	if err != nil {
		s.log.Warn().Err(err).Msg("token exchange failed")
		if serr := s.sessions.Set(ctx, &core.Session{State: core.SessionFailed}); serr != nil {
			return nil, serr
		}
		return nil, err
	}

	return s.adopt(ctx, token, nil)
}

// adopt stores the token and asks the backend to vouch for it. Provider
// tokens alone never mark the user verified.
func (s *AuthService) adopt(ctx context.Context, token string, displayProfile *core.UserProfile) (*core.Session, error) {
	user, err := s.backend.VerifyToken(ctx, token)
	if err != nil {
		s.log.Warn().Err(err).Msg("backend token verification failed")
		if serr := s.sessions.Set(ctx, &core.Session{State: core.SessionFailed}); serr != nil {
			return nil, serr
		}
		return nil, err
	}

	profile := user
	if profile == nil || (*profile == core.UserProfile{}) {
		profile = displayProfile
	}

	session := &core.Session{
		State:       core.SessionAuthenticated,
		AccessToken: token,
		Verified:    true,
		Profile:     profile,
		IssuedAt:    time.Now(),
	}
	if err := s.sessions.Set(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info().Msg("session authenticated")
	return session, nil
}

// Session returns the current persisted session.
func (s *AuthService) Session(ctx context.Context) (*core.Session, error) {
	return s.sessions.Get(ctx)
}

// SignOut destroys the session and any authorization-request remnants.
func (s *AuthService) SignOut(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}
