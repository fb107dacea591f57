package workflow

import (
	"context"
	"encoding/json"
	"fmt"
)

// Value is the unit of data carried along an edge. Data is either a string
// (plain text) or a JSON-compatible structure (map[string]any, []any,
// numbers, bools); IsError marks a value produced by a failed node and
// routed along an error edge.
type Value struct {
	Data    any
	IsError bool
}

// TextValue wraps a plain string.
func TextValue(s string) Value { return Value{Data: s} }

// JSONValue wraps a decoded JSON structure.
func JSONValue(v any) Value { return Value{Data: v} }

// ErrorValue wraps an error as the text payload of a routed error value,
// matching the `metadata.error=true` convention of the message model.
func ErrorValue(err error) Value {
	return Value{Data: err.Error(), IsError: true}
}

// Text projects Data to its text/string content. A map with a "text" or
// "content" key unwraps that field (mirroring the agent node's reply
// unwrapping rule); anything else is JSON-marshaled.
func (v Value) Text() string {
	switch t := v.Data.(type) {
	case string:
		return t
	case nil:
		return ""
	case map[string]any:
		if s, ok := t["text"].(string); ok {
			return s
		}
		if s, ok := t["content"].(string); ok {
			return s
		}
	}
	b, err := json.Marshal(v.Data)
	if err != nil {
		return fmt.Sprint(v.Data)
	}
	return string(b)
}

// AgentRegistry resolves agent_id node config into a callable agent and
// ensures it is reachable before use.
type AgentRegistry interface {
	// Ensure makes sure agentID is connected and ready, returning an error
	// if it cannot be reached.
	Ensure(ctx context.Context, agentID string) error
	// Send delivers text to agentID and returns its reply. The reply may be
	// a plain string or a map with a "content"/"text" field, per the agent
	// node's unwrapping rule.
	Send(ctx context.Context, agentID string, text string) (any, error)
}

// ToolRegistry resolves tool_id node config into an invokable tool.
type ToolRegistry interface {
	Invoke(ctx context.Context, toolID string, params map[string]any) (any, error)
}
