package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateContains(t *testing.T) {
	ok, err := Evaluate(Contains, "it is Rainy today", map[string]any{"value": "Rainy"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateEquals(t *testing.T) {
	ok, err := Evaluate(Equals, "sunny", map[string]any{"value": "rainy"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateStartsEndsWith(t *testing.T) {
	ok, err := Evaluate(StartsWith, "hello world", map[string]any{"value": "hello"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(EndsWith, "hello world", map[string]any{"value": "world"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateRegex(t *testing.T) {
	ok, err := Evaluate(Regex, "order-1234", map[string]any{"pattern": `^order-\d+$`})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateRegexInvalidPattern(t *testing.T) {
	_, err := Evaluate(Regex, "x", map[string]any{"pattern": "("})
	assert.Error(t, err)
}

func TestEvaluateAlways(t *testing.T) {
	ok, err := Evaluate(Always, "anything", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateJavaScriptIn(t *testing.T) {
	ok, err := Evaluate(JavaScript, "blue", map[string]any{"expression": `input in ["red", "blue"]`})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateJavaScriptBoolOps(t *testing.T) {
	ok, err := Evaluate(JavaScript, "Rainy", map[string]any{
		"expression": `input startsWith "Rain" && !(input endsWith "xyz")`,
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateJavaScriptOr(t *testing.T) {
	ok, err := Evaluate(JavaScript, "sunny", map[string]any{
		"expression": `input == "rainy" || input == "sunny"`,
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateUnknownType(t *testing.T) {
	_, err := Evaluate(Type("eval"), "x", nil)
	assert.Error(t, err)
}
