package stream

import (
	"context"
	"errors"
	"time"
)

// ErrQueueFull is returned by Bridge.Send when the bounded queue is full and
// the producer is not willing to block.
var ErrQueueFull = errors.New("stream: bridge queue full")

// IdleTimeout is the duration a Bridge waits for a new event before closing
// an otherwise-idle subscription.
const IdleTimeout = 300 * time.Second

// Bridge decouples a task's event producer from a slow consumer (an SSE
// connection writing over the network) using a bounded channel: Send never
// blocks the producer indefinitely, and the consumer drains at its own
// pace. This is the producer/consumer shape runtime/a2a/server.go's
// TasksSendSubscribe assumes a transport-specific TaskStream provides, made
// explicit and reusable across transports.
type Bridge struct {
	events chan Event
	done   chan struct{}
	closed chan struct{}
}

// NewBridge constructs a Bridge with the given queue capacity.
func NewBridge(capacity int) *Bridge {
	if capacity <= 0 {
		capacity = 32
	}
	return &Bridge{
		events: make(chan Event, capacity),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
}

// Send enqueues event for delivery. It returns ErrQueueFull immediately
// rather than blocking if the queue is saturated, so a stalled consumer
// cannot stall task execution.
func (b *Bridge) Send(event Event) error {
	select {
	case b.events <- event:
		return nil
	case <-b.done:
		return errors.New("stream: bridge closed")
	default:
		return ErrQueueFull
	}
}

// Close signals producers that no further events will be consumed.
func (b *Bridge) Close() {
	select {
	case <-b.closed:
	default:
		close(b.closed)
		close(b.done)
	}
}

// Pump drains the bridge into sink until the task finishes (a Final event is
// delivered), ctx is canceled, or the bridge has been idle for
// IdleTimeout. Cancellation from ctx is observed within one channel
// operation, satisfying the sub-second disconnect-to-stop requirement SSE
// subscriptions need.
func (b *Bridge) Pump(ctx context.Context, sink Sink) error {
	timer := time.NewTimer(IdleTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return errors.New("stream: bridge idle timeout")
		case event, ok := <-b.events:
			if !ok {
				return nil
			}
			timer.Stop()
			timer.Reset(IdleTimeout)
			if err := sink.Send(ctx, event); err != nil {
				return err
			}
			if event.Final {
				return nil
			}
		}
	}
}
