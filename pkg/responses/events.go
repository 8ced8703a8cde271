package responses

import "encoding/json"

// StreamEvent is a single decoded Responses SSE event. The vocabulary is
// large and loosely typed upstream, so this is a permissive envelope:
// every field the streaming bridge might need is pulled out; anything
// else is ignored.
type StreamEvent struct {
	Type string `json:"type"`

	// response.created / response.completed / response.incomplete / response.failed
	Response *Response `json:"response,omitempty"`

	// response.output_item.added / response.output_item.done
	Item   *Item  `json:"item,omitempty"`
	ItemID string `json:"item_id,omitempty"`

	// response.output_text.delta / response.refusal.delta /
	// response.custom_tool_call_input.delta / reasoning_summary.delta
	Delta string `json:"delta,omitempty"`

	// response.function_call_arguments.delta/.done
	Arguments *string `json:"arguments,omitempty"`

	// response.custom_tool_call_input.done
	Input *string `json:"input,omitempty"`

	// response.reasoning_summary.done (and friends)
	Summary string `json:"summary,omitempty"`
	Text    string `json:"text,omitempty"`
}

type rawStreamEvent struct {
	Type      string          `json:"type"`
	Response  json.RawMessage `json:"response"`
	Item      json.RawMessage `json:"item"`
	ItemID    string          `json:"item_id"`
	Delta     json.RawMessage `json:"delta"`
	Arguments *string         `json:"arguments"`
	Input     *string         `json:"input"`
	Summary   json.RawMessage `json:"summary"`
	Text      json.RawMessage `json:"text"`
}

// DecodeStreamEvent decodes one already-JSON-parsed SSE payload (as
// produced by the SSE framer) into a StreamEvent. Malformed or
// unrecognized substructures degrade to zero values rather than failing
// the whole decode, matching the permissive-decoder design note: a
// single bad event must not break the stream.
func DecodeStreamEvent(raw map[string]any) (StreamEvent, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return StreamEvent{}, err
	}
	var rse rawStreamEvent
	if err := json.Unmarshal(b, &rse); err != nil {
		return StreamEvent{}, err
	}

	ev := StreamEvent{
		Type:      rse.Type,
		ItemID:    rse.ItemID,
		Arguments: rse.Arguments,
		Input:     rse.Input,
	}
	if len(rse.Delta) > 0 {
		ev.Delta = decodeStringOrJSON(rse.Delta)
	}
	if len(rse.Response) > 0 {
		if r, err := DecodeResponse(rse.Response); err == nil {
			ev.Response = r
		}
	}
	if len(rse.Item) > 0 {
		if item, err := DecodeItem(rse.Item); err == nil {
			ev.Item = &item
		}
	}
	ev.Summary = decodeTextLike(rse.Summary)
	ev.Text = decodeTextLike(rse.Text)
	return ev, nil
}
