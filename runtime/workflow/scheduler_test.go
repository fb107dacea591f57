package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsDanglingEdge(t *testing.T) {
	wf := &Workflow{
		Nodes: map[string]*Node{"a": {ID: "a", Type: NodeInput}},
		Edges: []*Edge{{ID: "e1", SourceNodeID: "a", TargetNodeID: "missing", Type: EdgeData}},
	}
	err := Validate(wf)
	assert.Error(t, err)
}

func TestValidateRequiresStartNode(t *testing.T) {
	wf := &Workflow{
		Nodes: map[string]*Node{
			"a": {ID: "a", Type: NodeInput, IncomingEdges: []string{"e1"}},
			"b": {ID: "b", Type: NodeOutput, IncomingEdges: []string{"e2"}},
		},
		Edges: []*Edge{
			{ID: "e1", SourceNodeID: "b", TargetNodeID: "a", Type: EdgeData},
			{ID: "e2", SourceNodeID: "a", TargetNodeID: "b", Type: EdgeData},
		},
	}
	err := Validate(wf)
	assert.Error(t, err)
}

// buildLinear constructs input -> output, matching the simplest legal graph.
func buildLinear() *Workflow {
	wf := &Workflow{
		Nodes: map[string]*Node{
			"in":  {ID: "in", Type: NodeInput, Config: map[string]any{"input_key": "query"}, OutgoingEdges: []string{"e1"}},
			"out": {ID: "out", Type: NodeOutput, Config: map[string]any{"output_key": "answer"}, IncomingEdges: []string{"e1"}},
		},
		Edges: []*Edge{{ID: "e1", SourceNodeID: "in", TargetNodeID: "out", Type: EdgeData}},
	}
	return wf
}

func TestRunLinearWorkflowProducesResult(t *testing.T) {
	wf := buildLinear()
	ex := NewExecutor(nil, nil)
	res := ex.Run(context.Background(), wf, map[string]any{"query": "hello"})
	require.NoError(t, res.Err)
	assert.True(t, res.Completed)
	assert.Equal(t, "hello", res.Results["answer"])
	assert.Equal(t, NodeCompleted, res.NodeStatus["in"])
	assert.Equal(t, NodeCompleted, res.NodeStatus["out"])
}

func TestRunConditionalRoutingPicksMatchingBranch(t *testing.T) {
	// input -> conditional(contains "Rainy") -> indoor | outdoor transform,
	// each with its own output node writing "advice": an output node waits
	// for all of its incoming edges, so one node joining both branches would
	// never become ready.
	wf := &Workflow{
		Nodes: map[string]*Node{
			"in": {ID: "in", Type: NodeInput, Config: map[string]any{"input_key": "forecast"},
				OutgoingEdges: []string{"e1"}},
			"cond": {ID: "cond", Type: NodeConditional,
				Config:        map[string]any{"condition_type": "contains", "value": "Rainy"},
				IncomingEdges: []string{"e1"}, OutgoingEdges: []string{"e_true", "e_false"}},
			"indoor": {ID: "indoor", Type: NodeTransform,
				Config:        map[string]any{"transform_type": "template", "transform_config": map[string]any{"template": "stay indoors"}},
				IncomingEdges: []string{"e_true"}, OutgoingEdges: []string{"e_out_indoor"}},
			"outdoor": {ID: "outdoor", Type: NodeTransform,
				Config:        map[string]any{"transform_type": "template", "transform_config": map[string]any{"template": "go outside"}},
				IncomingEdges: []string{"e_false"}, OutgoingEdges: []string{"e_out_outdoor"}},
			"out_indoor": {ID: "out_indoor", Type: NodeOutput, Config: map[string]any{"output_key": "advice"},
				IncomingEdges: []string{"e_out_indoor"}},
			"out_outdoor": {ID: "out_outdoor", Type: NodeOutput, Config: map[string]any{"output_key": "advice"},
				IncomingEdges: []string{"e_out_outdoor"}},
		},
		Edges: []*Edge{
			{ID: "e1", SourceNodeID: "in", TargetNodeID: "cond", Type: EdgeData},
			{ID: "e_true", SourceNodeID: "cond", TargetNodeID: "indoor", Type: EdgeConditionTrue},
			{ID: "e_false", SourceNodeID: "cond", TargetNodeID: "outdoor", Type: EdgeConditionFalse},
			{ID: "e_out_indoor", SourceNodeID: "indoor", TargetNodeID: "out_indoor", Type: EdgeData},
			{ID: "e_out_outdoor", SourceNodeID: "outdoor", TargetNodeID: "out_outdoor", Type: EdgeData},
		},
	}

	ex := NewExecutor(nil, nil)
	res := ex.Run(context.Background(), wf, map[string]any{"forecast": "Rainy all day"})
	require.NoError(t, res.Err)
	assert.Equal(t, "stay indoors", res.Results["advice"])
	assert.Equal(t, NodeSkipped, res.NodeStatus["outdoor"])
	assert.Equal(t, NodeCompleted, res.NodeStatus["indoor"])
}

func TestRunRoutesErrorEdgeOnNodeFailure(t *testing.T) {
	wf := &Workflow{
		Nodes: map[string]*Node{
			"in":      {ID: "in", Type: NodeInput, Config: map[string]any{"input_key": "q"}, OutgoingEdges: []string{"e1"}},
			"tool":    {ID: "tool", Type: NodeTool, Config: map[string]any{"tool_id": "boom"}, IncomingEdges: []string{"e1"}, OutgoingEdges: []string{"eerr"}},
			"recover": {ID: "recover", Type: NodeOutput, Config: map[string]any{"output_key": "failure"}, IncomingEdges: []string{"eerr"}},
		},
		Edges: []*Edge{
			{ID: "e1", SourceNodeID: "in", TargetNodeID: "tool", Type: EdgeData},
			{ID: "eerr", SourceNodeID: "tool", TargetNodeID: "recover", Type: EdgeError},
		},
	}
	ex := NewExecutor(nil, failingTools{})
	res := ex.Run(context.Background(), wf, map[string]any{"q": "x"})
	require.NoError(t, res.Err)
	assert.True(t, res.Completed)
	assert.Contains(t, res.Results["failure"], "boom")
}

func TestRunFailsWholeWorkflowWithoutErrorEdge(t *testing.T) {
	wf := &Workflow{
		Nodes: map[string]*Node{
			"in":   {ID: "in", Type: NodeInput, Config: map[string]any{"input_key": "q"}, OutgoingEdges: []string{"e1"}},
			"tool": {ID: "tool", Type: NodeTool, Config: map[string]any{"tool_id": "boom"}, IncomingEdges: []string{"e1"}},
		},
		Edges: []*Edge{{ID: "e1", SourceNodeID: "in", TargetNodeID: "tool", Type: EdgeData}},
	}
	ex := NewExecutor(nil, failingTools{})
	res := ex.Run(context.Background(), wf, map[string]any{"q": "x"})
	assert.Error(t, res.Err)
	assert.False(t, res.Completed)
}

func TestRunAgentNodeWrapsReply(t *testing.T) {
	wf := &Workflow{
		Nodes: map[string]*Node{
			"in":    {ID: "in", Type: NodeInput, Config: map[string]any{"input_key": "q"}, OutgoingEdges: []string{"e1"}},
			"agent": {ID: "agent", Type: NodeAgent, Config: map[string]any{"agent_id": "helper"}, IncomingEdges: []string{"e1"}, OutgoingEdges: []string{"e2"}},
			"out":   {ID: "out", Type: NodeOutput, Config: map[string]any{"output_key": "reply"}, IncomingEdges: []string{"e2"}},
		},
		Edges: []*Edge{
			{ID: "e1", SourceNodeID: "in", TargetNodeID: "agent", Type: EdgeData},
			{ID: "e2", SourceNodeID: "agent", TargetNodeID: "out", Type: EdgeData},
		},
	}
	ex := NewExecutor(echoAgents{}, nil)
	res := ex.Run(context.Background(), wf, map[string]any{"q": "ping"})
	require.NoError(t, res.Err)
	assert.Equal(t, "echo:ping", res.Results["reply"])
}

func TestRunExceedsStepBudget(t *testing.T) {
	// "out" requires inputs from both e_in2 and e_b. e_b only arrives via
	// "b", and "b" only starts via cond's condition_true edge, which never
	// fires (cond always evaluates false). "out" is therefore enqueued,
	// found not-ready, and re-enqueued forever until the step budget trips.
	wf := &Workflow{
		Nodes: map[string]*Node{
			"in":   {ID: "in", Type: NodeInput, Config: map[string]any{"input_key": "q"}, OutgoingEdges: []string{"e_in1", "e_in2"}},
			"cond": {ID: "cond", Type: NodeConditional, Config: map[string]any{"condition_type": "equals", "value": "never"}, IncomingEdges: []string{"e_in1"}, OutgoingEdges: []string{"e_true"}},
			"b":    {ID: "b", Type: NodeTransform, Config: map[string]any{"transform_type": "passthrough"}, IncomingEdges: []string{"e_true"}, OutgoingEdges: []string{"e_b"}},
			"out":  {ID: "out", Type: NodeOutput, Config: map[string]any{"output_key": "r"}, IncomingEdges: []string{"e_in2", "e_b"}},
		},
		Edges: []*Edge{
			{ID: "e_in1", SourceNodeID: "in", TargetNodeID: "cond", Type: EdgeData},
			{ID: "e_in2", SourceNodeID: "in", TargetNodeID: "out", Type: EdgeData},
			{ID: "e_true", SourceNodeID: "cond", TargetNodeID: "b", Type: EdgeConditionTrue},
			{ID: "e_b", SourceNodeID: "b", TargetNodeID: "out", Type: EdgeData},
		},
	}
	ex := NewExecutor(nil, nil)
	ex.StepBudget = 10
	res := ex.Run(context.Background(), wf, map[string]any{"q": "ping"})
	assert.Error(t, res.Err)
}

type failingTools struct{}

func (failingTools) Invoke(_ context.Context, _ string, _ map[string]any) (any, error) {
	return nil, errors.New("boom: tool unavailable")
}

type echoAgents struct{}

func (echoAgents) Ensure(_ context.Context, _ string) error { return nil }
func (echoAgents) Send(_ context.Context, _ string, text string) (any, error) {
	return "echo:" + text, nil
}
