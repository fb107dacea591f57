// Package condition evaluates the boolean conditions used by workflow
// conditional nodes and condition_true/condition_false edges. The
// "javascript" condition type is deliberately NOT backed by an embedded JS
// engine — only a minimal, safe boolean expression grammar is supported
// (in, ==, startsWith, endsWith, &&, ||, !). Anything outside that grammar
// is a parse error, never arbitrary code execution.
package condition

import (
	"fmt"
	"regexp"
	"strings"
)

// Type identifies which evaluation rule a conditional node or edge uses.
type Type string

// Supported condition types.
const (
	Always     Type = "always"
	Contains   Type = "contains"
	Equals     Type = "equals"
	StartsWith Type = "starts_with"
	EndsWith   Type = "ends_with"
	Regex      Type = "regex"
	JavaScript Type = "javascript"
)

// Evaluate runs the named condition type against text, consulting config for
// the comparison value ("value" for contains/equals/starts_with/ends_with,
// "pattern" for regex, "expression" for javascript).
func Evaluate(typ Type, text string, config map[string]any) (bool, error) {
	switch typ {
	case Always, "":
		return true, nil
	case Contains:
		return strings.Contains(text, stringField(config, "value")), nil
	case Equals:
		return text == stringField(config, "value"), nil
	case StartsWith:
		return strings.HasPrefix(text, stringField(config, "value")), nil
	case EndsWith:
		return strings.HasSuffix(text, stringField(config, "value")), nil
	case Regex:
		pattern := stringField(config, "pattern")
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("condition: invalid regex %q: %w", pattern, err)
		}
		return re.MatchString(text), nil
	case JavaScript:
		expr := stringField(config, "expression")
		return EvaluateExpression(expr, text)
	default:
		return false, fmt.Errorf("condition: unknown condition type %q", typ)
	}
}

func stringField(config map[string]any, key string) string {
	if config == nil {
		return ""
	}
	v, ok := config[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
