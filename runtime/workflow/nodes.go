package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"goa.design/a2arun/runtime/workflow/condition"
)

// execContext carries the per-run collaborators and accumulated state that
// executeNode needs beyond a single node's own config.
type execContext struct {
	agents    AgentRegistry
	tools     ToolRegistry
	inputData map[string]any
	results   map[string]any
}

// executeNode runs node against its delivered inputs (keyed by incoming
// edge id) and returns its output value.
func executeNode(ctx context.Context, ec *execContext, node *Node, inputs map[string]Value) (Value, error) {
	first, hasFirst := firstInput(node, inputs)

	switch node.Type {
	case NodeInput:
		if key, ok := node.Config["input_key"].(string); ok && key != "" {
			if v, ok := ec.inputData[key]; ok {
				return JSONValue(v), nil
			}
		}
		if hasFirst {
			return first, nil
		}
		if dv, ok := node.Config["default_value"]; ok {
			return JSONValue(dv), nil
		}
		return Value{}, nil

	case NodeOutput:
		if key, ok := node.Config["output_key"].(string); ok && key != "" {
			ec.results[key] = first.Data
		}
		return first, nil

	case NodeAgent:
		agentID, _ := node.Config["agent_id"].(string)
		if agentID == "" {
			return Value{}, fmt.Errorf("workflow: agent node %q missing config.agent_id", node.ID)
		}
		if ec.agents == nil {
			return Value{}, fmt.Errorf("workflow: agent node %q: no agent registry configured", node.ID)
		}
		if err := ec.agents.Ensure(ctx, agentID); err != nil {
			return Value{}, fmt.Errorf("workflow: agent %q not reachable: %w", agentID, err)
		}
		reply, err := ec.agents.Send(ctx, agentID, first.Text())
		if err != nil {
			return Value{}, fmt.Errorf("workflow: agent %q: %w", agentID, err)
		}
		return wrapAgentReply(reply), nil

	case NodeTool:
		toolID, _ := node.Config["tool_id"].(string)
		if toolID == "" {
			return Value{}, fmt.Errorf("workflow: tool node %q missing config.tool_id", node.ID)
		}
		if ec.tools == nil {
			return Value{}, fmt.Errorf("workflow: tool node %q: no tool registry configured", node.ID)
		}
		params := mergeToolParams(node.Config, first)
		result, err := ec.tools.Invoke(ctx, toolID, params)
		if err != nil {
			return Value{}, fmt.Errorf("workflow: tool %q: %w", toolID, err)
		}
		return JSONValue(result), nil

	case NodeConditional:
		typ, _ := node.Config["condition_type"].(string)
		ok, err := condition.Evaluate(condition.Type(typ), first.Text(), node.Config)
		if err != nil {
			return Value{}, err
		}
		return Value{Data: ok}, nil

	case NodeTransform:
		typ, _ := node.Config["transform_type"].(string)
		transformConfig, _ := node.Config["transform_config"].(map[string]any)
		return applyTransform(TransformType(typ), first, transformConfig)

	default:
		return Value{}, fmt.Errorf("workflow: unknown node type %q", node.Type)
	}
}

// firstInput returns the value delivered on the first (in declared order)
// incoming edge that has actually produced a value.
func firstInput(node *Node, inputs map[string]Value) (Value, bool) {
	for _, edgeID := range node.IncomingEdges {
		if v, ok := inputs[edgeID]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// wrapAgentReply unwraps a reply that is itself a mapping carrying a
// "content" or "text" field; otherwise it is used as-is.
func wrapAgentReply(reply any) Value {
	if m, ok := reply.(map[string]any); ok {
		if v, ok := m["content"]; ok {
			return Value{Data: v}
		}
		if v, ok := m["text"]; ok {
			return Value{Data: v}
		}
	}
	return Value{Data: reply}
}

// mergeToolParams combines config.parameters with the first incoming
// value, per the node's declared merge strategy: a named single parameter
// (config.input_parameter), a mapping merge, or a JSON-parsed string.
func mergeToolParams(config map[string]any, first Value) map[string]any {
	params := map[string]any{}
	if base, ok := config["parameters"].(map[string]any); ok {
		for k, v := range base {
			params[k] = v
		}
	}

	if name, ok := config["input_parameter"].(string); ok && name != "" {
		params[name] = first.Data
		return params
	}

	switch v := first.Data.(type) {
	case map[string]any:
		for k, val := range v {
			params[k] = val
		}
	case string:
		var decoded map[string]any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			for k, val := range decoded {
				params[k] = val
			}
		}
	}
	return params
}
