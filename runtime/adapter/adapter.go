// Package adapter defines the contract an agent implementation satisfies to
// be driven by the task engine and transports in this module. The contract
// is layered: Adapter is the minimum any agent must implement, and
// TaskAdapter, StreamingAdapter, and SubscribingAdapter are optional
// richer interfaces (progressive enhancement, the same pattern
// runtime/a2a/server.go uses to fall back to a minimal agentruntime.Client
// when richer hooks are absent). The task engine type-asserts only for
// TaskAdapter (see ResolveTaskAdapter); it does not call ExecuteStreaming
// or Subscribe.
package adapter

import (
	"context"

	"goa.design/a2arun/runtime/protocol"
)

// Adapter is the minimum contract: handle one message and return the
// agent's reply message. Implementations should be safe for concurrent use;
// the task engine may invoke Handle for many tasks concurrently.
type Adapter interface {
	Handle(ctx context.Context, msg protocol.Message) (protocol.Message, error)
}

// TaskAdapter is implemented by agents that want visibility into the task
// object (its status, accumulated artifacts, conversation id) rather than a
// bare message, and that want to emit incremental artifacts as they produce
// them instead of returning a single final result.
type TaskAdapter interface {
	ExecuteTask(ctx context.Context, task *protocol.Task, emit ArtifactEmitter) error
}

// ArtifactEmitter is called by a TaskAdapter each time it produces an
// artifact. The task engine appends the artifact to the task and forwards
// it to any subscribed streams.
type ArtifactEmitter func(protocol.Artifact)

// StreamingAdapter is implemented by agents that can produce content
// incrementally (token-by-token or chunk-by-chunk) rather than only whole
// artifacts. The task engine in this module does not call ExecuteStreaming,
// so chunks emitted here are not forwarded to SSE subscribers.
type StreamingAdapter interface {
	ExecuteStreaming(ctx context.Context, task *protocol.Task, emit ContentEmitter) error
}

// ContentEmitter is called by a StreamingAdapter for each incremental chunk
// of output content.
type ContentEmitter func(protocol.Content)

// SubscribingAdapter is implemented by agents that run as long-lived
// subscriptions rather than bounded executions: the adapter is handed a
// context that is canceled when the client disconnects or cancels the task,
// and is responsible for running until that happens or it decides the task
// is done.
type SubscribingAdapter interface {
	Subscribe(ctx context.Context, task *protocol.Task, emit ArtifactEmitter) error
}
