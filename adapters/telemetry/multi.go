package telemetry

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ai-pulse/pulsekit/ports"
)

// Fanout emits every event to each ready sink and swallows every failure.
type Fanout struct {
	sinks []ports.TelemetrySink
	log   zerolog.Logger
}

// NewFanout combines zero or more sinks into one.
func NewFanout(log zerolog.Logger, sinks ...ports.TelemetrySink) *Fanout {
	return &Fanout{sinks: sinks, log: log.With().Str("component", "telemetry").Logger()}
}

var _ ports.TelemetrySink = (*Fanout)(nil)

// Ready reports whether any sink is accepting events.
func (f *Fanout) Ready() bool {
	for _, s := range f.sinks {
		if s.Ready() {
			return true
		}
	}
	return false
}

// Emit fans the event out. It always returns nil: sink failures are logged
// and fully isolated from the action being annotated.
func (f *Fanout) Emit(ctx context.Context, event string, attrs map[string]string) error {
	for _, s := range f.sinks {
		if !s.Ready() {
			continue
		}
		if err := s.Emit(ctx, event, attrs); err != nil {
			f.log.Debug().Err(err).Str("event", event).Msg("telemetry emit failed")
		}
	}
	return nil
}
