package messages

import "encoding/json"

// Event is an Anthropic streaming SSE event payload. Type is the
// discriminator used both as the SSE "event:" line and as the JSON
// "type" field of the "data:" line.
type Event struct {
	Type string

	// message_start
	Message *Envelope

	// content_block_start / content_block_delta / content_block_stop
	Index        int
	ContentBlock map[string]any

	// content_block_delta
	Delta *Delta

	// message_delta
	Usage *Usage
}

// MarshalJSON renders only the keys that belong to this event's Type,
// since the Anthropic grammar never emits an "index" alongside
// message_start, nor a "message" alongside content_block_stop.
func (e Event) MarshalJSON() ([]byte, error) {
	m := map[string]any{"type": e.Type}
	switch e.Type {
	case "message_start":
		m["message"] = e.Message
	case "content_block_start":
		m["index"] = e.Index
		m["content_block"] = e.ContentBlock
	case "content_block_delta":
		m["index"] = e.Index
		m["delta"] = e.Delta
	case "content_block_stop":
		m["index"] = e.Index
	case "message_delta":
		m["delta"] = e.Delta
		m["usage"] = e.Usage
	case "message_stop":
		// no additional fields
	}
	return json.Marshal(m)
}

// Delta is the union of delta shapes carried by content_block_delta and
// message_delta events.
type Delta struct {
	Type string `json:"type,omitempty"`

	// text_delta
	Text string `json:"text,omitempty"`

	// input_json_delta
	PartialJSON *string `json:"partial_json,omitempty"`

	// thinking_delta
	Thinking string `json:"thinking,omitempty"`

	// message_delta's delta object. isMessageDelta distinguishes it from
	// the content_block_delta shapes above so MarshalJSON can omit
	// stop_reason/stop_sequence from text/tool/thinking deltas while still
	// emitting an explicit "stop_sequence": null for message_delta.
	StopReason     *string `json:"-"`
	StopSequence   *string `json:"-"`
	isMessageDelta bool
}

// MarshalJSON renders only the fields relevant to this delta's kind:
// message_delta gets {stop_reason, stop_sequence} and no "type"; every
// other delta gets {type, ...its own field} and never stop_sequence.
func (d Delta) MarshalJSON() ([]byte, error) {
	if d.isMessageDelta {
		return json.Marshal(struct {
			StopReason   *string `json:"stop_reason"`
			StopSequence *string `json:"stop_sequence"`
		}{StopReason: d.StopReason, StopSequence: d.StopSequence})
	}
	switch d.Type {
	case "input_json_delta":
		return json.Marshal(struct {
			Type        string `json:"type"`
			PartialJSON string `json:"partial_json"`
		}{Type: d.Type, PartialJSON: derefStr(d.PartialJSON)})
	case "thinking_delta":
		return json.Marshal(struct {
			Type     string `json:"type"`
			Thinking string `json:"thinking"`
		}{Type: d.Type, Thinking: d.Thinking})
	default:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{Type: d.Type, Text: d.Text})
	}
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MessageStart builds the one-time message_start event.
func MessageStart(messageID, model string) Event {
	return Event{
		Type: "message_start",
		Message: &Envelope{
			ID:      messageID,
			Type:    "message",
			Role:    "assistant",
			Content: []ContentBlock{},
			Model:   model,
			Usage:   Usage{InputTokens: intPtr(0), OutputTokens: intPtr(0)},
		},
	}
}

// ContentBlockStart builds a content_block_start event for an opened block.
func ContentBlockStart(index int, block map[string]any) Event {
	return Event{Type: "content_block_start", Index: index, ContentBlock: block}
}

// ContentBlockStop builds a content_block_stop event.
func ContentBlockStop(index int) Event {
	return Event{Type: "content_block_stop", Index: index}
}

// TextDelta builds a content_block_delta event carrying a text_delta.
func TextDelta(index int, text string) Event {
	return Event{Type: "content_block_delta", Index: index, Delta: &Delta{Type: "text_delta", Text: text}}
}

// InputJSONDelta builds a content_block_delta event carrying an
// input_json_delta (the tool-argument streaming payload).
func InputJSONDelta(index int, partialJSON string) Event {
	p := partialJSON
	return Event{Type: "content_block_delta", Index: index, Delta: &Delta{Type: "input_json_delta", PartialJSON: &p}}
}

// ThinkingDelta builds a content_block_delta event carrying a thinking_delta.
func ThinkingDelta(index int, thinking string) Event {
	return Event{Type: "content_block_delta", Index: index, Delta: &Delta{Type: "thinking_delta", Thinking: thinking}}
}

// MessageDelta builds the terminal message_delta event.
func MessageDelta(stopReason string, usage Usage) Event {
	sr := stopReason
	return Event{
		Type:  "message_delta",
		Delta: &Delta{StopReason: &sr, StopSequence: nil, isMessageDelta: true},
		Usage: &usage,
	}
}

// MessageStop builds the terminal message_stop event.
func MessageStop() Event {
	return Event{Type: "message_stop"}
}

func intPtr(v int) *int { return &v }
