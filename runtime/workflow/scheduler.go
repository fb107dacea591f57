package workflow

import (
	"context"
	"fmt"

	"goa.design/a2arun/runtime/telemetry"
	"goa.design/a2arun/runtime/workflow/condition"
)

// DefaultStepBudget bounds total scheduler work when Executor.StepBudget is
// left at zero.
const DefaultStepBudget = 1000

// NodeStatus is the terminal disposition of a node once a run finishes.
type NodeStatus string

// Possible terminal node statuses.
const (
	NodeCompleted NodeStatus = "completed"
	NodeSkipped   NodeStatus = "skipped"
)

// Result is the outcome of running a workflow to completion or failure.
type Result struct {
	Completed  bool
	Results    map[string]any
	NodeStatus map[string]NodeStatus
	Err        error
}

// Executor runs Workflow graphs against a fixed set of collaborators.
type Executor struct {
	Agents     AgentRegistry
	Tools      ToolRegistry
	StepBudget int

	Logger  telemetry.Logger
	Metrics telemetry.Metrics
}

// NewExecutor constructs an Executor. Agents and Tools may be nil if the
// workflow never reaches an agent or tool node.
func NewExecutor(agents AgentRegistry, tools ToolRegistry) *Executor {
	return &Executor{
		Agents:     agents,
		Tools:      tools,
		StepBudget: DefaultStepBudget,
		Logger:     telemetry.NewNoopLogger(),
		Metrics:    telemetry.NewNoopMetrics(),
	}
}

// Validate performs structural checks only: every edge must reference
// existing nodes, and at least one start node (zero incoming edges) must
// exist.
func Validate(wf *Workflow) error {
	if len(wf.Nodes) == 0 {
		return fmt.Errorf("workflow: no nodes defined")
	}
	for _, e := range wf.Edges {
		if _, ok := wf.Nodes[e.SourceNodeID]; !ok {
			return fmt.Errorf("workflow: edge %q references unknown source node %q", e.ID, e.SourceNodeID)
		}
		if _, ok := wf.Nodes[e.TargetNodeID]; !ok {
			return fmt.Errorf("workflow: edge %q references unknown target node %q", e.ID, e.TargetNodeID)
		}
	}
	hasStart := false
	for _, n := range wf.Nodes {
		if len(n.IncomingEdges) == 0 {
			hasStart = true
			break
		}
	}
	if !hasStart {
		return fmt.Errorf("workflow: no start node (every node has incoming edges)")
	}
	return nil
}

// Run executes wf to completion, failure, or step-budget exhaustion.
func (ex *Executor) Run(ctx context.Context, wf *Workflow, inputData map[string]any) *Result {
	if err := Validate(wf); err != nil {
		return &Result{Err: err}
	}

	budget := ex.StepBudget
	if budget <= 0 {
		budget = DefaultStepBudget
	}

	ec := &execContext{
		agents:    ex.Agents,
		tools:     ex.Tools,
		inputData: inputData,
		results:   map[string]any{},
	}

	var queue []string
	queued := map[string]bool{}
	completed := map[string]bool{}
	inputs := map[string]map[string]Value{}

	enqueue := func(id string) {
		if queued[id] || completed[id] {
			return
		}
		queued[id] = true
		queue = append(queue, id)
	}
	deliver := func(targetID, edgeID string, v Value) {
		if inputs[targetID] == nil {
			inputs[targetID] = map[string]Value{}
		}
		inputs[targetID][edgeID] = v
	}

	for _, n := range wf.Nodes {
		if len(n.IncomingEdges) == 0 {
			enqueue(n.ID)
		}
	}

	steps := 0
	for len(queue) > 0 {
		if steps >= budget {
			ex.Metrics.IncCounter("workflow.step_budget_exceeded", 1, "workflow", wf.Name)
			return &Result{Err: fmt.Errorf("workflow: step budget of %d exceeded", budget)}
		}
		steps++

		id := queue[0]
		queue = queue[1:]
		queued[id] = false

		node := wf.Nodes[id]
		if !requiredInputsReady(node, inputs[id]) {
			queued[id] = true
			queue = append(queue, id)
			continue
		}

		out, err := executeNode(ctx, ec, node, inputs[id])
		if err != nil {
			errorEdges := outgoingByType(wf, node, EdgeError)
			if len(errorEdges) == 0 {
				ex.Logger.Error(ctx, "workflow node failed with no error edge", "workflow", wf.Name, "node", id, "error", err)
				return &Result{Err: fmt.Errorf("workflow: node %q failed: %w", id, err)}
			}
			ex.Logger.Warn(ctx, "workflow node failed, routing along error edge", "workflow", wf.Name, "node", id, "error", err)
			errVal := ErrorValue(err)
			for _, e := range errorEdges {
				deliver(e.TargetNodeID, e.ID, errVal)
				enqueue(e.TargetNodeID)
			}
			completed[id] = true
			continue
		}

		completed[id] = true
		ex.Metrics.IncCounter("workflow.node_completed", 1, "workflow", wf.Name, "node_type", string(node.Type))
		for _, edgeID := range node.OutgoingEdges {
			edge, ok := wf.EdgeByID(edgeID)
			if !ok {
				continue
			}
			follow, ferr := shouldFollowEdge(edge, out)
			if ferr != nil {
				return &Result{Err: fmt.Errorf("workflow: edge %q: %w", edge.ID, ferr)}
			}
			if follow {
				deliver(edge.TargetNodeID, edge.ID, out)
				enqueue(edge.TargetNodeID)
			}
		}
	}

	statuses := map[string]NodeStatus{}
	for id := range wf.Nodes {
		if completed[id] {
			statuses[id] = NodeCompleted
		} else {
			statuses[id] = NodeSkipped
		}
	}

	return &Result{
		Completed:  true,
		Results:    ec.results,
		NodeStatus: statuses,
	}
}

// requiredInputsReady checks that a node's required incoming edges have
// all produced a value. Conditional nodes may narrow the required set via
// config.required_inputs (a list of edge ids); everything else requires
// all declared incoming edges.
func requiredInputsReady(node *Node, got map[string]Value) bool {
	required := node.IncomingEdges
	if node.Type == NodeConditional {
		if subset, ok := node.Config["required_inputs"].([]any); ok {
			required = make([]string, 0, len(subset))
			for _, v := range subset {
				if s, ok := v.(string); ok {
					required = append(required, s)
				}
			}
		}
	}
	for _, edgeID := range required {
		if _, ok := got[edgeID]; !ok {
			return false
		}
	}
	return true
}

func outgoingByType(wf *Workflow, node *Node, typ EdgeType) []*Edge {
	var out []*Edge
	for _, edgeID := range node.OutgoingEdges {
		edge, ok := wf.EdgeByID(edgeID)
		if ok && edge.Type == typ {
			out = append(out, edge)
		}
	}
	return out
}

// shouldFollowEdge implements the routing table: data/success edges are
// always followed, error edges only when the source node failed (handled
// separately by the caller, never via this path), and condition_true/
// condition_false edges evaluate their own condition config against the
// source node's output text.
func shouldFollowEdge(edge *Edge, output Value) (bool, error) {
	switch edge.Type {
	case EdgeData, EdgeSuccess:
		return true, nil
	case EdgeError:
		return false, nil
	case EdgeConditionTrue, EdgeConditionFalse:
		var ok bool
		var err error
		if typ, hasTyp := edge.Config["condition_type"].(string); hasTyp && typ != "" {
			ok, err = condition.Evaluate(condition.Type(typ), output.Text(), edge.Config)
		} else if b, isBool := output.Data.(bool); isBool {
			// No edge-local condition configured: the edge is reading a
			// conditional node's own boolean output directly.
			ok = b
		} else {
			ok, err = condition.Evaluate(condition.Always, output.Text(), edge.Config)
		}
		if err != nil {
			return false, err
		}
		if edge.Type == EdgeConditionFalse {
			ok = !ok
		}
		return ok, nil
	default:
		return false, fmt.Errorf("workflow: unknown edge type %q", edge.Type)
	}
}
