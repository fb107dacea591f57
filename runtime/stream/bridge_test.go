package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeDeliversEventsInOrderUntilFinal(t *testing.T) {
	b := NewBridge(4)
	require.NoError(t, b.Send(StatusEvent("task-1", "conv-1", statusWorking())))
	require.NoError(t, b.Send(ArtifactEvent("task-1", "conv-1", minimalArtifact())))
	require.NoError(t, b.Send(StatusEvent("task-1", "conv-1", statusCompleted())))

	var received []Event
	sink := SinkFunc(func(_ context.Context, e Event) error {
		received = append(received, e)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := b.Pump(ctx, sink)
	require.NoError(t, err)
	require.Len(t, received, 3)
	assert.True(t, received[2].Final)
}

func TestBridgeRejectsWhenFull(t *testing.T) {
	b := NewBridge(1)
	require.NoError(t, b.Send(StatusEvent("task-1", "conv-1", statusWorking())))
	err := b.Send(StatusEvent("task-1", "conv-1", statusWorking()))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestBridgeStopsWithinContextCancellation(t *testing.T) {
	b := NewBridge(4)
	sink := SinkFunc(func(context.Context, Event) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Pump(ctx, sink) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("pump did not observe cancellation within 1s")
	}
}
