package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TransformType selects a transform node's rewrite rule.
type TransformType string

// Supported transform types.
const (
	TransformPassthrough TransformType = "passthrough"
	TransformExtract     TransformType = "extract"
	TransformTemplate    TransformType = "template"
	TransformJSON        TransformType = "json"
)

func applyTransform(typ TransformType, in Value, config map[string]any) (Value, error) {
	switch typ {
	case TransformPassthrough, "":
		return in, nil
	case TransformExtract:
		path, _ := config["field_path"].(string)
		v, err := extractFieldPath(in.Data, path)
		if err != nil {
			return Value{}, err
		}
		return Value{Data: v}, nil
	case TransformTemplate:
		tmpl, _ := config["template"].(string)
		return TextValue(strings.ReplaceAll(tmpl, "${input}", in.Text())), nil
	case TransformJSON:
		if s, ok := in.Data.(string); ok {
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err != nil {
				return Value{}, fmt.Errorf("workflow: json transform: %w", err)
			}
			return Value{Data: parsed}, nil
		}
		// Already structured: canonicalize by round-tripping through JSON.
		b, err := json.Marshal(in.Data)
		if err != nil {
			return Value{}, fmt.Errorf("workflow: json transform: %w", err)
		}
		var canon any
		if err := json.Unmarshal(b, &canon); err != nil {
			return Value{}, fmt.Errorf("workflow: json transform: %w", err)
		}
		return Value{Data: canon}, nil
	default:
		return Value{}, fmt.Errorf("workflow: unknown transform type %q", typ)
	}
}

// extractFieldPath walks a dotted path ("a.b.2.c") through nested
// map[string]any values and numeric-indexed []any sequences.
func extractFieldPath(data any, path string) (any, error) {
	if path == "" {
		return data, nil
	}
	cur := data
	for _, segment := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[segment]
			if !ok {
				return nil, fmt.Errorf("workflow: field path segment %q not found", segment)
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("workflow: field path segment %q is not a valid index", segment)
			}
			cur = v[idx]
		default:
			return nil, fmt.Errorf("workflow: cannot descend into %T at segment %q", cur, segment)
		}
	}
	return cur, nil
}
