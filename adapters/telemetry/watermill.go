package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/ai-pulse/pulsekit/ports"
)

// DefaultTopic is the stream topic telemetry events are published to.
const DefaultTopic = "pulse.telemetry"

// StreamSink publishes telemetry events to a message stream.
type StreamSink struct {
	publisher message.Publisher
	topic     string
}

// NewStreamSink creates a stream sink. A nil publisher yields a sink that
// is never ready, which callers treat as disabled.
func NewStreamSink(publisher message.Publisher, topic string) *StreamSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &StreamSink{publisher: publisher, topic: topic}
}

var _ ports.TelemetrySink = (*StreamSink)(nil)

// Ready reports whether a publisher is wired up.
func (s *StreamSink) Ready() bool {
	return s.publisher != nil
}

type streamEvent struct {
	Event     string            `json:"event"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	EmittedAt time.Time         `json:"emitted_at"`
}

// Emit publishes one event to the stream.
func (s *StreamSink) Emit(ctx context.Context, event string, attrs map[string]string) error {
	if s.publisher == nil {
		return nil
	}

	payload, err := json.Marshal(streamEvent{Event: event, Attrs: attrs, EmittedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
