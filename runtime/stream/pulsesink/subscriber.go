package pulsesink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pulseclient "goa.design/a2arun/runtime/stream/pulseclient"

	"goa.design/a2arun/runtime/protocol"
	"goa.design/a2arun/runtime/stream"
)

type (
	// SubscriberOptions configures a Pulse-backed subscriber.
	SubscriberOptions struct {
		// Client is the Pulse client used to consume events. Required.
		Client pulseclient.Client
		// SinkName identifies the Pulse consumer group. Defaults to
		// "a2arun_subscriber".
		SinkName string
		// Buffer specifies the event channel capacity. Defaults to 64.
		Buffer int
	}

	// Subscriber consumes a task's Pulse stream and re-emits decoded
	// stream.Events, letting any replica serve an SSE subscription for a
	// task regardless of which replica is executing it.
	Subscriber struct {
		client pulseclient.Client
		buffer int
		name   string
	}
)

// NewSubscriber constructs a Pulse-backed Subscriber. opts.Client is
// required.
func NewSubscriber(opts SubscriberOptions) (*Subscriber, error) {
	if opts.Client == nil {
		return nil, errors.New("pulsesink: client is required")
	}
	name := opts.SinkName
	if name == "" {
		name = "a2arun_subscriber"
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	return &Subscriber{client: opts.Client, buffer: buffer, name: name}, nil
}

// Subscribe opens a Pulse consumer group on the given task's stream and
// returns channels of decoded events and errors, plus a cancel function that
// stops consumption and closes the underlying sink.
func (s *Subscriber) Subscribe(ctx context.Context, taskID string) (<-chan stream.Event, <-chan error, context.CancelFunc, error) {
	streamName := fmt.Sprintf("task/%s", taskID)
	str, err := s.client.Stream(streamName)
	if err != nil {
		return nil, nil, nil, err
	}
	sink, err := str.NewSink(ctx, s.name)
	if err != nil {
		return nil, nil, nil, err
	}
	events := make(chan stream.Event, s.buffer)
	errs := make(chan error, 1)
	runCtx, cancel := context.WithCancel(ctx)
	go s.consume(runCtx, sink, events, errs)
	cancelFunc := func() {
		cancel()
		sink.Close(context.Background())
	}
	return events, errs, cancelFunc, nil
}

func (s *Subscriber) consume(ctx context.Context, sink pulseclient.Sink, out chan<- stream.Event, errs chan<- error) {
	defer close(out)
	defer close(errs)
	ch := sink.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			decoded, err := decodeEnvelope(evt.Payload)
			if err != nil {
				errs <- fmt.Errorf("pulsesink decode payload: %w", err)
				return
			}
			select {
			case out <- decoded:
			case <-ctx.Done():
				return
			}
			if ackErr := sink.Ack(ctx, evt); ackErr != nil {
				errs <- fmt.Errorf("pulsesink ack: %w", ackErr)
				return
			}
		}
	}
}

func decodeEnvelope(payload []byte) (stream.Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return stream.Event{}, err
	}
	event := stream.Event{
		Type:           stream.EventType(env.Type),
		TaskID:         env.TaskID,
		ConversationID: env.ConversationID,
		Final:          env.Final,
		Timestamp:      env.Timestamp,
	}
	if env.Status != nil {
		var status protocol.TaskStatus
		if b, err := json.Marshal(env.Status); err == nil {
			_ = json.Unmarshal(b, &status)
		}
		event.Status = &status
	}
	if env.Artifact != nil {
		var artifact protocol.Artifact
		if b, err := json.Marshal(env.Artifact); err == nil {
			_ = json.Unmarshal(b, &artifact)
		}
		event.Artifact = &artifact
	}
	if env.Message != nil {
		var msg protocol.Message
		if b, err := json.Marshal(env.Message); err == nil {
			_ = json.Unmarshal(b, &msg)
		}
		event.Message = &msg
	}
	return event, nil
}
