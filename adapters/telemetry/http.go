// Package telemetry provides best-effort analytics sinks. Nothing here may
// fail or delay the action it annotates.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ai-pulse/pulsekit/ports"
)

const (
	// DefaultReadinessAttempts bounds how often a sink probes its backend
	// before giving up for the rest of the session.
	DefaultReadinessAttempts = 5

	// DefaultReadinessInterval is the pause between readiness probes.
	DefaultReadinessInterval = 2 * time.Second
)

// HTTPSink posts events to an analytics ingest endpoint. It stays disabled
// until a readiness probe succeeds; once the probe budget is exhausted it
// stays silently disabled for the remainder of the session.
type HTTPSink struct {
	url      string
	key      string
	client   *http.Client
	log      zerolog.Logger
	ready    atomic.Bool
	disabled atomic.Bool
}

// NewHTTPSink creates an HTTP analytics sink. An empty URL or key disables
// the sink permanently.
func NewHTTPSink(ingestURL, apiKey string, log zerolog.Logger) *HTTPSink {
	s := &HTTPSink{
		url:    ingestURL,
		key:    apiKey,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    log.With().Str("component", "telemetry.http").Logger(),
	}
	if ingestURL == "" || apiKey == "" {
		s.disabled.Store(true)
	}
	return s
}

var _ ports.TelemetrySink = (*HTTPSink)(nil)

// Start launches the readiness poller. Bounded attempts with a fixed
// interval; no retry beyond the budget.
func (s *HTTPSink) Start(ctx context.Context) {
	if s.disabled.Load() {
		return
	}
	go s.poll(ctx, DefaultReadinessAttempts, DefaultReadinessInterval)
}

func (s *HTTPSink) poll(ctx context.Context, attempts int, interval time.Duration) {
	for i := 0; i < attempts; i++ {
		if s.probe(ctx) {
			s.ready.Store(true)
			s.log.Debug().Msg("analytics backend ready")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
	s.disabled.Store(true)
	s.log.Debug().Int("attempts", attempts).Msg("analytics backend unreachable, telemetry disabled")
}

func (s *HTTPSink) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.url, nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// Ready reports whether the sink is accepting events.
func (s *HTTPSink) Ready() bool {
	return s.ready.Load() && !s.disabled.Load()
}

type httpEvent struct {
	Event     string            `json:"event"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	EmittedAt time.Time         `json:"emitted_at"`
}

// Emit posts one event. Errors are advisory; callers swallow them.
func (s *HTTPSink) Emit(ctx context.Context, event string, attrs map[string]string) error {
	if !s.Ready() {
		return nil
	}

	payload, err := json.Marshal(httpEvent{Event: event, Attrs: attrs, EmittedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.key)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("analytics backend answered %d", resp.StatusCode)
	}
	return nil
}
