package oauth

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ai-pulse/pulsekit/core"
)

// OutcomeKind classifies what an incoming callback URL contained.
type OutcomeKind int

const (
	// OutcomeNotApplicable means no recognizable authorization parameters
	// were present, or a security check failed closed. Callers do nothing.
	OutcomeNotApplicable OutcomeKind = iota

	// OutcomeProviderError carries an error the provider reported.
	OutcomeProviderError

	// OutcomeDirectToken carries a pre-issued token delivered directly in
	// the URL by a backend-mediated redirect.
	OutcomeDirectToken

	// OutcomeCode carries an authorization code ready for exchange.
	OutcomeCode

	// OutcomeImplicit carries an id_token from the implicit flow.
	OutcomeImplicit
)

// Outcome is the result of resolving a callback URL.
type Outcome struct {
	Kind OutcomeKind

	// Token holds the direct token or id_token, depending on Kind.
	Token string

	// Code and Verifier are set for OutcomeCode; Verifier comes from the
	// consumed authorization request.
	Code     string
	Verifier string

	// Err is set for OutcomeProviderError.
	Err *core.ProviderError
}

// Resolve inspects a callback URL and classifies it. It runs once per
// re-entry: a matched code or implicit callback consumes the stored
// authorization request, so the same URL can never be replayed.
//
// A state mismatch may indicate a replayed or forged callback. It fails
// closed: the callback is dropped silently, logged only, and the pending
// request is left in place.
func (f *Flow) Resolve(ctx context.Context, rawURL string) (Outcome, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Outcome{}, fmt.Errorf("invalid callback URL: %w", err)
	}

	params := normalizeParams(u)

	switch {
	case params.Get("error") != "":
		// The request is unusable after a provider error; drop it.
		if err := Discard(ctx, f.store); err != nil {
			return Outcome{}, err
		}
		perr := &core.ProviderError{
			Code:        params.Get("error"),
			Description: params.Get("error_description"),
		}
		f.log.Warn().Str("code", perr.Code).Msg("provider returned an error")
		return Outcome{Kind: OutcomeProviderError, Err: perr}, nil

	case params.Get("token") != "":
		return Outcome{Kind: OutcomeDirectToken, Token: params.Get("token")}, nil

	case params.Get("code") != "":
		return f.resolveCode(ctx, params.Get("code"), params.Get("state"))

	case params.Get("id_token") != "":
		return f.resolveImplicit(ctx, params.Get("id_token"), params.Get("state"))
	}

	return Outcome{Kind: OutcomeNotApplicable}, nil
}

func (f *Flow) resolveCode(ctx context.Context, code, state string) (Outcome, error) {
	stored, err := loadRequest(ctx, f.store)
	if err != nil {
		return Outcome{}, err
	}
	if stored == nil {
		f.log.Warn().Err(core.ErrNoAuthRequest).Msg("dropping code callback")
		return Outcome{Kind: OutcomeNotApplicable}, nil
	}
	if state == "" || state != stored.State {
		f.log.Warn().Err(core.ErrStateMismatch).Msg("dropping code callback")
		return Outcome{Kind: OutcomeNotApplicable}, nil
	}

	// The request matched: it is consumed either way.
	if err := Discard(ctx, f.store); err != nil {
		return Outcome{}, err
	}

	if stored.CodeVerifier == "" {
		f.log.Warn().Err(core.ErrVerifierMissing).Msg("dropping code callback")
		return Outcome{Kind: OutcomeNotApplicable}, nil
	}

	return Outcome{Kind: OutcomeCode, Code: code, Verifier: stored.CodeVerifier}, nil
}

func (f *Flow) resolveImplicit(ctx context.Context, idToken, state string) (Outcome, error) {
	stored, err := loadRequest(ctx, f.store)
	if err != nil {
		return Outcome{}, err
	}
	if stored == nil {
		f.log.Warn().Err(core.ErrNoAuthRequest).Msg("dropping implicit callback")
		return Outcome{Kind: OutcomeNotApplicable}, nil
	}
	if state == "" || state != stored.State {
		f.log.Warn().Err(core.ErrStateMismatch).Msg("dropping implicit callback")
		return Outcome{Kind: OutcomeNotApplicable}, nil
	}

	if err := Discard(ctx, f.store); err != nil {
		return Outcome{}, err
	}

	return Outcome{Kind: OutcomeImplicit, Token: idToken}, nil
}

// authParams are the authorization parameters stripped by CleanURL.
var authParams = []string{"code", "state", "id_token", "token", "error", "error_description"}

// normalizeParams merges query-string and fragment parameters into one
// canonical map. Providers deliver the implicit response in the fragment
// and the code response in the query; fragment values win on conflict.
func normalizeParams(u *url.URL) url.Values {
	params := u.Query()
	if u.Fragment != "" {
		if frag, err := url.ParseQuery(u.Fragment); err == nil {
			for key, values := range frag {
				params[key] = values
			}
		}
	}
	return params
}

// CleanURL returns the URL with all authorization parameters removed from
// both the query string and the fragment. Callers replace the current
// history entry with the result so a refresh cannot replay the callback.
func CleanURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	q := u.Query()
	for _, p := range authParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()

	if u.Fragment != "" {
		if frag, err := url.ParseQuery(u.Fragment); err == nil {
			for _, p := range authParams {
				frag.Del(p)
			}
			u.Fragment = frag.Encode()
		}
	}

	return u.String()
}
