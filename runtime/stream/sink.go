package stream

import "context"

// Sink publishes Events to a destination: an SSE connection, a Pulse
// (Redis-backed) stream for cross-replica fan-out, or a test recorder. The
// task engine holds one Sink per active subscription and calls Send for
// every lifecycle event the task produces.
type Sink interface {
	Send(ctx context.Context, event Event) error
	Close(ctx context.Context) error
}

// SinkFunc adapts a plain function to the Sink interface for tests and
// simple in-process subscribers.
type SinkFunc func(ctx context.Context, event Event) error

// Send implements Sink.
func (f SinkFunc) Send(ctx context.Context, event Event) error { return f(ctx, event) }

// Close implements Sink as a no-op.
func (f SinkFunc) Close(context.Context) error { return nil }
