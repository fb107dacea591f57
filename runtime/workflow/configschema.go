package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// nodeConfigSchemas holds the per-node-type JSON Schema (draft 2020-12,
// expressed as a Go map so callers don't need an embedded file) that a
// node's Config must satisfy for LoadYAML/LoadJSON to accept a workflow
// (Validate itself does not check node configs). Grounded
// on registry/service.go's validatePayloadJSONAgainstSchema: compile a
// schema document with jsonschema.Compiler and validate a decoded JSON
// value against it, rather than hand-rolling field checks.
var nodeConfigSchemas = map[NodeType]map[string]any{
	NodeAgent: {
		"type":                 "object",
		"properties":           map[string]any{"agent_id": map[string]any{"type": "string", "minLength": 1}},
		"required":             []any{"agent_id"},
		"additionalProperties": true,
	},
	NodeTool: {
		"type":                 "object",
		"properties":           map[string]any{"tool_id": map[string]any{"type": "string", "minLength": 1}},
		"required":             []any{"tool_id"},
		"additionalProperties": true,
	},
	NodeConditional: {
		"type": "object",
		"properties": map[string]any{
			"condition_type": map[string]any{
				"type": "string",
				"enum": []any{"always", "contains", "equals", "starts_with", "ends_with", "regex", "javascript"},
			},
		},
		"required":             []any{"condition_type"},
		"additionalProperties": true,
	},
	NodeTransform: {
		"type": "object",
		"properties": map[string]any{
			"transform_type": map[string]any{
				"type": "string",
				"enum": []any{"passthrough", "extract", "template", "json"},
			},
		},
		"required":             []any{"transform_type"},
		"additionalProperties": true,
	},
}

// compiledConfigSchemas lazily holds one compiled jsonschema.Schema per
// NodeType named in nodeConfigSchemas.
var compiledConfigSchemas map[NodeType]*jsonschema.Schema

func compiledSchemaFor(nt NodeType) (*jsonschema.Schema, error) {
	if compiledConfigSchemas == nil {
		compiledConfigSchemas = make(map[NodeType]*jsonschema.Schema, len(nodeConfigSchemas))
	}
	if s, ok := compiledConfigSchemas[nt]; ok {
		return s, nil
	}
	doc, ok := nodeConfigSchemas[nt]
	if !ok {
		return nil, nil
	}
	resource := fmt.Sprintf("node-config-%s.json", nt)
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("workflow: add config schema resource for %s: %w", nt, err)
	}
	schema, err := c.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("workflow: compile config schema for %s: %w", nt, err)
	}
	compiledConfigSchemas[nt] = schema
	return schema, nil
}

// ValidateNodeConfigs checks every node's Config map against the JSON
// Schema registered for its NodeType in nodeConfigSchemas (input and output
// nodes have no required shape and are skipped). It is pure: it reports
// schema violations but never mutates the workflow.
func ValidateNodeConfigs(wf *Workflow) error {
	for id, n := range wf.Nodes {
		schema, err := compiledSchemaFor(n.Type)
		if err != nil {
			return err
		}
		if schema == nil {
			continue
		}
		// jsonschema validates decoded JSON values (map[string]any, []any,
		// string, float64, bool, nil); round-trip Config through JSON so
		// numeric types match what a wire-decoded document would carry.
		raw, err := json.Marshal(n.Config)
		if err != nil {
			return fmt.Errorf("workflow: marshal config for node %q: %w", id, err)
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("workflow: unmarshal config for node %q: %w", id, err)
		}
		if err := schema.Validate(doc); err != nil {
			return fmt.Errorf("workflow: node %q config invalid: %w", id, err)
		}
	}
	return nil
}
