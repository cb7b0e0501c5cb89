package ports

import "context"

// TelemetrySink delivers analytics events on a best-effort basis. A sink
// failure must never fail or delay the action it annotates.
type TelemetrySink interface {
	// Ready reports whether the sink has finished its readiness handshake
	// and is accepting events.
	Ready() bool

	// Emit sends one event. Errors are advisory; callers swallow them.
	Emit(ctx context.Context, event string, attrs map[string]string) error
}
