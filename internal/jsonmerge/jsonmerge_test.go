package jsonmerge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge_ScalarReplaces(t *testing.T) {
	base := map[string]any{"effort": "low"}
	updates := map[string]any{"effort": "high"}

	got := Merge(base, updates)
	assert.Equal(t, "high", got["effort"])
}

func TestMerge_NestedDictsRecurse(t *testing.T) {
	base := map[string]any{
		"reasoning": map[string]any{"effort": "low", "summary": "auto"},
	}
	updates := map[string]any{
		"reasoning": map[string]any{"effort": "high"},
	}

	got := Merge(base, updates)
	reasoning := got["reasoning"].(map[string]any)
	assert.Equal(t, "high", reasoning["effort"])
	assert.Equal(t, "auto", reasoning["summary"])
}

func TestMerge_EmptyUpdatesReturnsBase(t *testing.T) {
	base := map[string]any{"a": 1}
	got := Merge(base, nil)
	assert.Equal(t, base, got)
}

func TestMerge_EmptyBaseReturnsUpdates(t *testing.T) {
	updates := map[string]any{"a": 1}
	got := Merge(nil, updates)
	assert.Equal(t, updates, got)
}

func TestMergeInPlace_MutatesBase(t *testing.T) {
	base := map[string]any{
		"model":  "gpt-5",
		"extras": map[string]any{"temperature": 0.2},
	}
	MergeInPlace(base, map[string]any{
		"extras": map[string]any{"top_p": 0.9},
	})

	extras := base["extras"].(map[string]any)
	assert.Equal(t, 0.2, extras["temperature"])
	assert.Equal(t, 0.9, extras["top_p"])
}
