package modelmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveExactMatchWinsOverWildcard(t *testing.T) {
	mapping := map[string]any{
		"claude-3-5-sonnet-20241022": "gpt-4.1",
		"claude-3-5-*":               "gpt-4o",
		"*":                          "gpt-4o-mini",
	}
	model, extras := Resolve("claude-3-5-sonnet-20241022", mapping)
	assert.Equal(t, "gpt-4.1", model)
	assert.Empty(t, extras)
}

func TestResolveMostSpecificWildcardWins(t *testing.T) {
	mapping := map[string]any{
		"claude-3-5-*":        "gpt-4o",
		"claude-3-5-sonnet-*": "gpt-4.1",
		"*":                   "gpt-4o-mini",
	}
	model, _ := Resolve("claude-3-5-sonnet-20241022", mapping)
	assert.Equal(t, "gpt-4.1", model)
}

func TestResolveLongerWildcardWinsOnEqualSpecificity(t *testing.T) {
	mapping := map[string]any{
		"claude-*-opus-*":  "gpt-a",
		"claude-?*-opus-*": "gpt-b",
	}
	model, _ := Resolve("claude-3-opus-20240229", mapping)
	assert.Equal(t, "gpt-b", model)
}

func TestResolveCatchAllFallback(t *testing.T) {
	mapping := map[string]any{
		"claude-3-5-*": "gpt-4o",
		"*":            "gpt-4o-mini",
	}
	model, _ := Resolve("claude-2.1", mapping)
	assert.Equal(t, "gpt-4o-mini", model)
}

func TestResolvePassThroughWhenNoMatch(t *testing.T) {
	mapping := map[string]any{"claude-3-5-*": "gpt-4o"}
	model, extras := Resolve("gpt-custom", mapping)
	assert.Equal(t, "gpt-custom", model)
	assert.Empty(t, extras)
}

func TestResolveExtractsExtras(t *testing.T) {
	mapping := map[string]any{
		"claude-3-5-*": map[string]any{
			"model":     "gpt-4o",
			"reasoning": map[string]any{"effort": "medium"},
		},
	}
	model, extras := Resolve("claude-3-5-sonnet-20241022", mapping)
	assert.Equal(t, "gpt-4o", model)
	assert.Equal(t, map[string]any{"effort": "medium"}, extras["reasoning"])
}

func TestResolveEmptyMappingIsPassThrough(t *testing.T) {
	model, extras := Resolve("claude-3-5-sonnet-20241022", nil)
	assert.Equal(t, "claude-3-5-sonnet-20241022", model)
	assert.Empty(t, extras)
}
