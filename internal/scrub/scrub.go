// Package scrub redacts credential-bearing keys from request/response
// payloads before they reach a log sink.
package scrub

import (
	"encoding/json"
	"fmt"
	"strings"
)

var sensitiveKeys = map[string]struct{}{
	"authorization":       {},
	"api_key":             {},
	"apikey":              {},
	"x-api-key":           {},
	"x-openai-api-key":    {},
	"openai_api_key":      {},
}

const redacted = "***"

// Payload walks a decoded JSON value (map[string]any / []any /
// scalars, as produced by encoding/json) and returns a copy with every
// sensitive key's value replaced, at any nesting depth. Key matching is
// case-insensitive.
func Payload(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			if _, sensitive := sensitiveKeys[strings.ToLower(k)]; sensitive {
				out[k] = redacted
			} else {
				out[k] = Payload(val)
			}
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, val := range vv {
			out[i] = Payload(val)
		}
		return out
	default:
		return v
	}
}

// MarshalScrubbed scrubs v (first normalizing it to plain JSON-like
// values via a marshal/unmarshal round trip, so structs and typed maps
// work the same as map[string]any) and renders it as a JSON string,
// truncated to maxChars (0 means unlimited) with a trailing marker so
// truncation is visible in the log line.
func MarshalScrubbed(v any, maxChars int) string {
	scrubbed := Payload(toJSONLike(v))
	b, err := json.Marshal(scrubbed)
	text := string(b)
	if err != nil {
		text = fmt.Sprintf("%v", v)
	}
	if maxChars > 0 && len(text) > maxChars {
		text = text[:maxChars] + "...(truncated)"
	}
	return text
}

func toJSONLike(v any) any {
	switch v.(type) {
	case map[string]any, []any, nil, string, bool, float64, int, int64:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return v
		}
		var out any
		if err := json.Unmarshal(b, &out); err != nil {
			return v
		}
		return out
	}
}
