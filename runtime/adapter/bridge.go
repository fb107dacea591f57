package adapter

import (
	"context"

	"goa.design/a2arun/runtime/protocol"
)

// DefaultTaskBridge adapts a bare Adapter into a TaskAdapter so the task
// engine can drive every agent through a single ExecuteTask entry point
// regardless of which interfaces the underlying agent actually implements.
// It calls Handle once and emits its reply as a single "result" artifact,
// the same one-shot shape runtime/a2a/server.go's TasksSend uses around
// agentruntime.Client.Run.
type DefaultTaskBridge struct {
	Adapter Adapter
}

// NewDefaultTaskBridge wraps adapter in a DefaultTaskBridge.
func NewDefaultTaskBridge(adapter Adapter) *DefaultTaskBridge {
	return &DefaultTaskBridge{Adapter: adapter}
}

// ExecuteTask implements TaskAdapter by delegating to the wrapped Adapter's
// Handle method and converting its reply message into a single artifact.
func (b *DefaultTaskBridge) ExecuteTask(ctx context.Context, task *protocol.Task, emit ArtifactEmitter) error {
	reply, err := b.Adapter.Handle(ctx, task.Message)
	if err != nil {
		return err
	}
	emit(protocol.Artifact{
		Name:  "result",
		Parts: []protocol.Part{reply.Content},
	})
	return nil
}

// ResolveTaskAdapter returns a TaskAdapter for agent: the agent itself if it
// already implements TaskAdapter, otherwise a DefaultTaskBridge wrapping it.
func ResolveTaskAdapter(agent Adapter) TaskAdapter {
	if ta, ok := agent.(TaskAdapter); ok {
		return ta
	}
	return NewDefaultTaskBridge(agent)
}
