package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAMLBuildsGraph(t *testing.T) {
	yamlDoc := []byte(`
name: greeting
description: says hello
nodes:
  in:
    type: input
    config:
      input_key: name
  out:
    type: output
    config:
      output_key: greeting
edges:
  - id: e1
    source: in
    target: out
    type: data
`)
	wf, err := LoadYAML(yamlDoc)
	require.NoError(t, err)
	assert.Equal(t, "greeting", wf.Name)
	require.Len(t, wf.Nodes, 2)
	assert.Equal(t, []string{"e1"}, wf.Nodes["in"].OutgoingEdges)
	assert.Equal(t, []string{"e1"}, wf.Nodes["out"].IncomingEdges)
}

func TestLoadJSONBuildsGraph(t *testing.T) {
	jsonDoc := []byte(`{
		"name": "greeting",
		"nodes": {
			"in": {"type": "input", "config": {"input_key": "name"}},
			"out": {"type": "output", "config": {"output_key": "greeting"}}
		},
		"edges": [{"id": "e1", "source": "in", "target": "out", "type": "data"}]
	}`)
	wf, err := LoadJSON(jsonDoc)
	require.NoError(t, err)
	assert.Equal(t, "greeting", wf.Name)
	require.NoError(t, Validate(wf))
}

func TestLoadJSONRejectsAgentNodeMissingAgentID(t *testing.T) {
	jsonDoc := []byte(`{
		"nodes": {
			"in": {"type": "input"},
			"a": {"type": "agent", "config": {}},
			"out": {"type": "output"}
		},
		"edges": [
			{"source": "in", "target": "a", "type": "data"},
			{"source": "a", "target": "out", "type": "data"}
		]
	}`)
	_, err := LoadJSON(jsonDoc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `node "a" config invalid`)
}

func TestLoadJSONRejectsConditionalNodeWithUnknownConditionType(t *testing.T) {
	jsonDoc := []byte(`{
		"nodes": {
			"in": {"type": "input"},
			"c": {"type": "conditional", "config": {"condition_type": "frobnicate"}},
			"out": {"type": "output"}
		},
		"edges": [
			{"source": "in", "target": "c", "type": "data"},
			{"source": "c", "target": "out", "type": "data"}
		]
	}`)
	_, err := LoadJSON(jsonDoc)
	require.Error(t, err)
}

func TestLoadJSONAssignsEdgeIDsWhenMissing(t *testing.T) {
	jsonDoc := []byte(`{
		"nodes": {
			"in": {"type": "input"},
			"out": {"type": "output"}
		},
		"edges": [{"source": "in", "target": "out", "type": "data"}]
	}`)
	wf, err := LoadJSON(jsonDoc)
	require.NoError(t, err)
	assert.Equal(t, "edge-0", wf.Edges[0].ID)
}
