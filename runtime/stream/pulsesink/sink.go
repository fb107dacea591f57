// Package pulsesink adapts goa.design/pulse (Redis-backed streams) into the
// stream.Sink interface, so multiple replicas of this runtime's HTTP/SSE
// transport can share task event fan-out: the replica handling a task's
// execution publishes events to a Pulse stream, and any replica serving an
// SSE subscription for that task reads from the same stream via
// NewSubscriber. It is grounded on features/stream/pulse/sink.go's envelope
// and publish pattern, adapted from that package's LLM agent run events to
// this module's task lifecycle events.
package pulsesink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pulseclient "goa.design/a2arun/runtime/stream/pulseclient"

	"goa.design/a2arun/runtime/stream"
)

type (
	// Options configures the Pulse-backed sink.
	Options struct {
		// Client is the Pulse client used to publish events. Required.
		Client pulseclient.Client
		// StreamID derives the target Pulse stream name from an event.
		// Defaults to "task/<TaskID>".
		StreamID func(stream.Event) (string, error)
	}

	// Sink publishes task Events into Pulse streams. Safe for concurrent use.
	Sink struct {
		client   pulseclient.Client
		streamID func(stream.Event) (string, error)
	}

	// envelope wraps a task Event for transmission over a Pulse stream.
	envelope struct {
		Type           string    `json:"type"`
		TaskID         string    `json:"task_id"`
		ConversationID string    `json:"conversation_id,omitempty"`
		Final          bool      `json:"final,omitempty"`
		Timestamp      time.Time `json:"timestamp"`
		Status         any       `json:"status,omitempty"`
		Artifact       any       `json:"artifact,omitempty"`
		Message        any       `json:"message,omitempty"`
	}
)

// NewSink constructs a Pulse-backed stream.Sink. opts.Client is required.
func NewSink(opts Options) (*Sink, error) {
	if opts.Client == nil {
		return nil, errors.New("pulsesink: client is required")
	}
	streamID := opts.StreamID
	if streamID == nil {
		streamID = defaultStreamID
	}
	return &Sink{client: opts.Client, streamID: streamID}, nil
}

// Send publishes the event to the task's Pulse stream.
func (s *Sink) Send(ctx context.Context, event stream.Event) error {
	name, err := s.streamID(event)
	if err != nil {
		return err
	}
	h, err := s.client.Stream(name)
	if err != nil {
		return err
	}
	env := envelope{
		Type:           string(event.Type),
		TaskID:         event.TaskID,
		ConversationID: event.ConversationID,
		Final:          event.Final,
		Timestamp:      event.Timestamp,
		Status:         event.Status,
		Artifact:       event.Artifact,
		Message:        event.Message,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, err = h.Add(ctx, env.Type, payload)
	return err
}

// Close releases resources owned by the underlying Pulse client.
func (s *Sink) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func defaultStreamID(event stream.Event) (string, error) {
	if event.TaskID == "" {
		return "", errors.New("pulsesink: event missing task id")
	}
	return fmt.Sprintf("task/%s", event.TaskID), nil
}
