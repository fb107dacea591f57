package workflow

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// definition is the declarative, wire/file shape of a Workflow: a mapping
// of node id to node body plus a flat edge list, matching how workflow
// graphs are authored as data (YAML or JSON) rather than only built up in
// code.
type definition struct {
	Name        string                    `yaml:"name" json:"name"`
	Description string                    `yaml:"description" json:"description"`
	Nodes       map[string]nodeDefinition `yaml:"nodes" json:"nodes"`
	Edges       []edgeDefinition          `yaml:"edges" json:"edges"`
}

type nodeDefinition struct {
	Name     string         `yaml:"name" json:"name"`
	Type     string         `yaml:"type" json:"type"`
	Config   map[string]any `yaml:"config" json:"config"`
	Position *Position      `yaml:"position" json:"position"`
}

type edgeDefinition struct {
	ID     string         `yaml:"id" json:"id"`
	Source string         `yaml:"source" json:"source"`
	Target string         `yaml:"target" json:"target"`
	Type   string         `yaml:"type" json:"type"`
	Config map[string]any `yaml:"config" json:"config"`
}

// LoadYAML parses a workflow graph definition from YAML. Node configs are
// checked against nodeConfigSchemas before the structural checks in
// Validate ever run, so a malformed config is rejected at load time with a
// schema-shaped error rather than surfacing later as a node execution
// failure.
func LoadYAML(data []byte) (*Workflow, error) {
	var def definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("workflow: parse yaml: %w", err)
	}
	return fromDefinition(def)
}

// LoadJSON parses a workflow graph definition from JSON, applying the same
// config-schema check as LoadYAML.
func LoadJSON(data []byte) (*Workflow, error) {
	var def definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("workflow: parse json: %w", err)
	}
	return fromDefinition(def)
}

func fromDefinition(def definition) (*Workflow, error) {
	wf := &Workflow{
		Name:        def.Name,
		Description: def.Description,
		Nodes:       make(map[string]*Node, len(def.Nodes)),
	}
	for id, nd := range def.Nodes {
		wf.Nodes[id] = &Node{
			ID:       id,
			Name:     nd.Name,
			Type:     NodeType(nd.Type),
			Config:   nd.Config,
			Position: nd.Position,
		}
	}
	for i, ed := range def.Edges {
		id := ed.ID
		if id == "" {
			id = fmt.Sprintf("edge-%d", i)
		}
		edge := &Edge{
			ID:           id,
			SourceNodeID: ed.Source,
			TargetNodeID: ed.Target,
			Type:         EdgeType(ed.Type),
			Config:       ed.Config,
		}
		wf.Edges = append(wf.Edges, edge)

		if src, ok := wf.Nodes[ed.Source]; ok {
			src.OutgoingEdges = append(src.OutgoingEdges, id)
		}
		if tgt, ok := wf.Nodes[ed.Target]; ok {
			tgt.IncomingEdges = append(tgt.IncomingEdges, id)
		}
	}
	if err := ValidateNodeConfigs(wf); err != nil {
		return nil, err
	}
	return wf, nil
}
