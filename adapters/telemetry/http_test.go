package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSinkDisabledWithoutConfig(t *testing.T) {
	for _, s := range []*HTTPSink{
		NewHTTPSink("", "", zerolog.Nop()),
		NewHTTPSink("http://analytics.local", "", zerolog.Nop()),
		NewHTTPSink("", "key", zerolog.Nop()),
	} {
		s.Start(context.Background())
		assert.False(t, s.Ready())
		assert.NoError(t, s.Emit(context.Background(), "report_requested", nil))
	}
}

func TestHTTPSinkEmitBeforeReadyIsNoop(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	s := NewHTTPSink(srv.URL, "key", zerolog.Nop())

	// Not started: no probe has succeeded, so nothing may leave the client.
	assert.NoError(t, s.Emit(context.Background(), "report_requested", nil))
	assert.Equal(t, int32(0), hits.Load())
}

func TestHTTPSinkBecomesReadyAndEmits(t *testing.T) {
	type received struct {
		method string
		auth   string
		event  string
	}
	got := make(chan received, 2)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := received{method: r.Method, auth: r.Header.Get("Authorization")}
		if r.Method == http.MethodPost {
			var ev httpEvent
			_ = json.NewDecoder(r.Body).Decode(&ev)
			rec.event = ev.Event
		}
		got <- rec
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSink(srv.URL, "secret", zerolog.Nop())
	s.poll(context.Background(), 1, time.Millisecond)
	require.True(t, s.Ready())

	probe := <-got
	assert.Equal(t, http.MethodHead, probe.method)

	require.NoError(t, s.Emit(context.Background(), "deep_report_purchased", map[string]string{"tx_hash": "0xabc"}))
	post := <-got
	assert.Equal(t, http.MethodPost, post.method)
	assert.Equal(t, "Bearer secret", post.auth)
	assert.Equal(t, "deep_report_purchased", post.event)
}

func TestHTTPSinkDisablesAfterProbeBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTPSink(srv.URL, "key", zerolog.Nop())
	s.poll(context.Background(), 2, time.Millisecond)

	// Budget exhausted: silently off for the rest of the session.
	assert.False(t, s.Ready())
	assert.NoError(t, s.Emit(context.Background(), "report_requested", nil))
}
