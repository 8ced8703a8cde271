// Package modelmap implements the model-name resolution rule: an exact
// match beats the most specific wildcard pattern, which beats a
// catch-all "*".
package modelmap

import (
	"path"
	"strings"
)

// Resolve looks up model in mapping and returns the resolved model
// name to send upstream plus any extra request fields the mapping
// entry carries (e.g. reasoning config). An empty or absent mapping
// for model is a pass-through: Resolve returns model unchanged and no
// extras.
//
// Precedence: an exact key match wins outright. Failing that, every
// wildcard key (containing '*' or '?') that matches model via
// shell-glob semantics is scored by (count of non-wildcard characters,
// pattern length), both descending; the highest-scoring match wins.
// Keys that tie on both scores are chosen between in map iteration
// order, which is not defined. Failing that, a literal "*" key (if
// present) is the catch-all. Otherwise model passes through unchanged.
func Resolve(model string, mapping map[string]any) (string, map[string]any) {
	if model == "" || len(mapping) == 0 {
		return model, map[string]any{}
	}

	if v, ok := mapping[model]; ok {
		return normalize(model, v)
	}

	var bestKey string
	var bestNonWild, bestLen int
	found := false
	for k := range mapping {
		if k == "" || k == "*" || !strings.ContainsAny(k, "*?") {
			continue
		}
		if !globMatch(k, model) {
			continue
		}
		nonWild := len(stripWildcards(k))
		if !found || nonWild > bestNonWild || (nonWild == bestNonWild && len(k) > bestLen) {
			found = true
			bestKey = k
			bestNonWild = nonWild
			bestLen = len(k)
		}
	}
	if found {
		return normalize(model, mapping[bestKey])
	}

	if v, ok := mapping["*"]; ok {
		return normalize(model, v)
	}

	return model, map[string]any{}
}

// normalize turns a raw model-map entry value (either a bare
// replacement-model string, or a mapping with a "model" key plus
// extras) into the (resolvedModel, extras) pair Resolve returns.
func normalize(requested string, v any) (string, map[string]any) {
	switch vv := v.(type) {
	case string:
		if vv != "" {
			return vv, map[string]any{}
		}
	case map[string]any:
		resolved := requested
		if m, ok := vv["model"].(string); ok && m != "" {
			resolved = m
		}
		extras := make(map[string]any, len(vv))
		for k, val := range vv {
			if k == "model" {
				continue
			}
			extras[k] = val
		}
		return resolved, extras
	}
	return requested, map[string]any{}
}

func globMatch(pattern, s string) bool {
	ok, err := path.Match(pattern, s)
	return err == nil && ok
}

func stripWildcards(pattern string) string {
	return strings.NewReplacer("*", "", "?", "").Replace(pattern)
}
