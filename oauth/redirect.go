package oauth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/ai-pulse/pulsekit/core"
	"github.com/ai-pulse/pulsekit/ports"
)

// Config is the static client configuration for the authorization flow.
type Config struct {
	// AuthorizeURL is the identity provider's authorization endpoint.
	AuthorizeURL string

	// ClientID, RedirectURI and Scope are sent verbatim to the provider.
	ClientID    string
	RedirectURI string
	Scope       string

	// Flow selects Authorization-Code+PKCE or Implicit at startup.
	Flow core.FlowKind
}

// Flow drives one authorization round trip: Begin before the redirect,
// Resolve on the way back.
type Flow struct {
	cfg   Config
	store ports.Store
	log   zerolog.Logger
}

// NewFlow creates a flow backed by durable storage. The store must survive
// the full page navigation to the provider and back.
func NewFlow(cfg Config, store ports.Store, log zerolog.Logger) *Flow {
	if cfg.Flow == "" {
		cfg.Flow = core.FlowCode
	}
	return &Flow{cfg: cfg, store: store, log: log.With().Str("component", "oauth").Logger()}
}

// Config returns the flow's static configuration.
func (f *Flow) Config() Config {
	return f.cfg
}

// Begin creates a fresh authorization request, persists it, and returns the
// provider URL to navigate to. The request is written to storage before the
// URL is handed out because the process is torn down by the navigation.
func (f *Flow) Begin(ctx context.Context) (string, error) {
	if f.cfg.AuthorizeURL == "" || f.cfg.ClientID == "" {
		return "", fmt.Errorf("authorization flow is not configured")
	}

	state, err := GenerateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	req := &core.AuthRequest{
		State:     state,
		Flow:      f.cfg.Flow,
		CreatedAt: time.Now(),
	}

	if f.cfg.Flow == core.FlowCode {
		verifier, err := GenerateVerifier()
		if err != nil {
			return "", fmt.Errorf("failed to generate verifier: %w", err)
		}
		req.CodeVerifier = verifier
		req.CodeChallenge = DeriveChallenge(verifier)
	}

	if err := saveRequest(ctx, f.store, req); err != nil {
		return "", err
	}

	authURL, err := buildAuthorizationURL(f.cfg, req)
	if err != nil {
		return "", err
	}

	f.log.Debug().Str("flow", string(f.cfg.Flow)).Msg("authorization request created")
	return authURL, nil
}

// buildAuthorizationURL composes the provider URL for one request. The two
// response_type variants are alternate configurations, never combined.
func buildAuthorizationURL(cfg Config, req *core.AuthRequest) (string, error) {
	u, err := url.Parse(cfg.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("invalid authorize URL: %w", err)
	}

	q := u.Query()
	q.Set("client_id", cfg.ClientID)
	q.Set("redirect_uri", cfg.RedirectURI)
	q.Set("scope", cfg.Scope)
	q.Set("state", req.State)

	switch req.Flow {
	case core.FlowImplicit:
		q.Set("response_type", "id_token")
	default:
		q.Set("response_type", "code")
		q.Set("code_challenge", req.CodeChallenge)
		q.Set("code_challenge_method", "S256")
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}
