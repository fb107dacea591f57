package adapter

import (
	"context"

	"goa.design/a2arun/runtime/protocol"
)

// EchoAdapter is a reference Adapter implementation that replies with the
// input content unchanged, prefixed for visibility. It exists as a minimal
// worked example and as a fixture for transport and engine tests.
type EchoAdapter struct {
	// Prefix is prepended to the echoed text. Defaults to "Echo: " if empty.
	Prefix string
}

// Handle implements Adapter.
func (e EchoAdapter) Handle(_ context.Context, msg protocol.Message) (protocol.Message, error) {
	prefix := e.Prefix
	if prefix == "" {
		prefix = "Echo: "
	}
	reply := protocol.NewMessage(msg.ConversationID, protocol.RoleAgent, protocol.NewTextPart(prefix+msg.Content.TextProjection()))
	reply.ParentMessageID = msg.MessageID
	return reply, nil
}
