package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-pulse/pulsekit/adapters/store"
	"github.com/ai-pulse/pulsekit/core"
)

func seedRequest(t *testing.T, st *store.MemoryStore, req *core.AuthRequest) {
	t.Helper()
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, st.Set(context.Background(), RequestKey, string(payload)))
}

func hasRequest(t *testing.T, st *store.MemoryStore) bool {
	t.Helper()
	_, err := st.Get(context.Background(), RequestKey)
	return err == nil
}

func TestResolveNoParams(t *testing.T) {
	st := store.NewMemoryStore()
	flow := NewFlow(testConfig(core.FlowCode), st, zerolog.Nop())

	outcome, err := flow.Resolve(context.Background(), "http://127.0.0.1:8976/auth/callback")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotApplicable, outcome.Kind)
}

func TestResolveProviderError(t *testing.T) {
	st := store.NewMemoryStore()
	flow := NewFlow(testConfig(core.FlowCode), st, zerolog.Nop())
	seedRequest(t, st, &core.AuthRequest{State: "abc", Flow: core.FlowCode, CodeVerifier: "v"})

	outcome, err := flow.Resolve(context.Background(),
		"http://127.0.0.1:8976/auth/callback?error=access_denied&error_description=user+cancelled")
	require.NoError(t, err)

	require.Equal(t, OutcomeProviderError, outcome.Kind)
	require.NotNil(t, outcome.Err)
	assert.Equal(t, "access_denied", outcome.Err.Code)
	assert.Equal(t, "user cancelled", outcome.Err.Description)

	// The pending request is unusable after a provider error.
	assert.False(t, hasRequest(t, st))
}

func TestResolveDirectToken(t *testing.T) {
	st := store.NewMemoryStore()
	flow := NewFlow(testConfig(core.FlowCode), st, zerolog.Nop())

	outcome, err := flow.Resolve(context.Background(),
		"http://127.0.0.1:8976/auth/callback?token=tok-123")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDirectToken, outcome.Kind)
	assert.Equal(t, "tok-123", outcome.Token)
}

func TestResolveCode(t *testing.T) {
	st := store.NewMemoryStore()
	flow := NewFlow(testConfig(core.FlowCode), st, zerolog.Nop())
	seedRequest(t, st, &core.AuthRequest{State: "st-1", Flow: core.FlowCode, CodeVerifier: "ver-1"})

	outcome, err := flow.Resolve(context.Background(),
		"http://127.0.0.1:8976/auth/callback?code=c-1&state=st-1")
	require.NoError(t, err)

	assert.Equal(t, OutcomeCode, outcome.Kind)
	assert.Equal(t, "c-1", outcome.Code)
	assert.Equal(t, "ver-1", outcome.Verifier)

	// Consumed: a replay of the same URL resolves to nothing.
	assert.False(t, hasRequest(t, st))
	replay, err := flow.Resolve(context.Background(),
		"http://127.0.0.1:8976/auth/callback?code=c-1&state=st-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotApplicable, replay.Kind)
}

func TestResolveCodeStateMismatch(t *testing.T) {
	st := store.NewMemoryStore()
	flow := NewFlow(testConfig(core.FlowCode), st, zerolog.Nop())
	seedRequest(t, st, &core.AuthRequest{State: "expected", Flow: core.FlowCode, CodeVerifier: "v"})

	for _, state := range []string{"", "forged", "Expected", "expected "} {
		outcome, err := flow.Resolve(context.Background(),
			fmt.Sprintf("http://127.0.0.1:8976/auth/callback?code=c-1&state=%s", state))
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotApplicable, outcome.Kind, "state %q must not resolve", state)
	}

	// A forged callback must not destroy the pending login.
	assert.True(t, hasRequest(t, st))
}

func TestResolveCodeWithoutStoredRequest(t *testing.T) {
	st := store.NewMemoryStore()
	flow := NewFlow(testConfig(core.FlowCode), st, zerolog.Nop())

	outcome, err := flow.Resolve(context.Background(),
		"http://127.0.0.1:8976/auth/callback?code=c-1&state=st-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotApplicable, outcome.Kind)
}

func TestResolveCodeWithoutVerifier(t *testing.T) {
	st := store.NewMemoryStore()
	flow := NewFlow(testConfig(core.FlowCode), st, zerolog.Nop())
	seedRequest(t, st, &core.AuthRequest{State: "st-1", Flow: core.FlowCode})

	outcome, err := flow.Resolve(context.Background(),
		"http://127.0.0.1:8976/auth/callback?code=c-1&state=st-1")
	require.NoError(t, err)

	// No exchange material: drop the callback but consume the request.
	assert.Equal(t, OutcomeNotApplicable, outcome.Kind)
	assert.False(t, hasRequest(t, st))
}

func TestResolveImplicitFromFragment(t *testing.T) {
	st := store.NewMemoryStore()
	flow := NewFlow(testConfig(core.FlowImplicit), st, zerolog.Nop())
	seedRequest(t, st, &core.AuthRequest{State: "st-9", Flow: core.FlowImplicit})

	outcome, err := flow.Resolve(context.Background(),
		"http://127.0.0.1:8976/auth/callback#id_token=jwt-1&state=st-9")
	require.NoError(t, err)

	assert.Equal(t, OutcomeImplicit, outcome.Kind)
	assert.Equal(t, "jwt-1", outcome.Token)
	assert.False(t, hasRequest(t, st))
}

func TestResolveImplicitStateMismatch(t *testing.T) {
	st := store.NewMemoryStore()
	flow := NewFlow(testConfig(core.FlowImplicit), st, zerolog.Nop())
	seedRequest(t, st, &core.AuthRequest{State: "st-9", Flow: core.FlowImplicit})

	outcome, err := flow.Resolve(context.Background(),
		"http://127.0.0.1:8976/auth/callback#id_token=jwt-1&state=other")
	require.NoError(t, err)

	assert.Equal(t, OutcomeNotApplicable, outcome.Kind)
	assert.True(t, hasRequest(t, st))
}

func TestResolveFragmentWinsOverQuery(t *testing.T) {
	st := store.NewMemoryStore()
	flow := NewFlow(testConfig(core.FlowCode), st, zerolog.Nop())
	seedRequest(t, st, &core.AuthRequest{State: "frag", Flow: core.FlowCode, CodeVerifier: "v"})

	outcome, err := flow.Resolve(context.Background(),
		"http://127.0.0.1:8976/auth/callback?code=c-1&state=query#state=frag")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCode, outcome.Kind)
}

func TestCleanURL(t *testing.T) {
	cases := map[string]string{
		"http://app.local/page?code=c&state=s&tab=report": "http://app.local/page?tab=report",
		"http://app.local/page#id_token=t&state=s":        "http://app.local/page",
		"http://app.local/page?error=denied&error_description=no&x=1#token=t": "http://app.local/page?x=1",
		"http://app.local/page?tab=report": "http://app.local/page?tab=report",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanURL(in), "input %s", in)
	}
}
