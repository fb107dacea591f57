// Package workflow executes a node/edge DAG of agent and tool calls. It is
// an in-memory ready-queue executor, not a durable one: there is no
// externally imposed scheduling policy, persistence, or retry-from-crash
// semantics. Where the execution model needs a collaborator — an agent
// network, a tool catalog — this package depends on small interfaces
// (AgentRegistry, ToolRegistry) rather than concrete implementations, the
// same seam adapter.Adapter uses for task execution. The routers in the
// airouter sub-package are not used by the executor.
package workflow

// NodeType selects a node's execution semantics.
type NodeType string

// Supported node types.
const (
	NodeInput       NodeType = "input"
	NodeOutput      NodeType = "output"
	NodeAgent       NodeType = "agent"
	NodeTool        NodeType = "tool"
	NodeConditional NodeType = "conditional"
	NodeTransform   NodeType = "transform"
)

// EdgeType selects the rule shouldFollowEdge applies when routing a node's
// output to its targets.
type EdgeType string

// Supported edge types.
const (
	EdgeData           EdgeType = "data"
	EdgeSuccess        EdgeType = "success"
	EdgeError          EdgeType = "error"
	EdgeConditionTrue  EdgeType = "condition_true"
	EdgeConditionFalse EdgeType = "condition_false"
)

// Position is opaque layout metadata carried through from a workflow
// definition; the executor never reads it.
type Position struct {
	X float64
	Y float64
}

// Node is one executable step in a workflow graph.
type Node struct {
	ID            string
	Name          string
	Type          NodeType
	Config        map[string]any
	Position      *Position
	IncomingEdges []string
	OutgoingEdges []string
}

// Edge connects two nodes and carries the routing rule applied to the
// source node's output.
type Edge struct {
	ID           string
	SourceNodeID string
	TargetNodeID string
	Type         EdgeType
	Config       map[string]any
}

// Workflow is a named graph of Nodes connected by Edges.
type Workflow struct {
	Name        string
	Description string
	Nodes       map[string]*Node
	Edges       []*Edge
}

// NodeByID looks up a node, returning ok=false if it does not exist.
func (w *Workflow) NodeByID(id string) (*Node, bool) {
	n, ok := w.Nodes[id]
	return n, ok
}

// EdgeByID looks up an edge by id.
func (w *Workflow) EdgeByID(id string) (*Edge, bool) {
	for _, e := range w.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}
