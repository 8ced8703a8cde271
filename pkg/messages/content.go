// Package messages models the Anthropic Messages wire format: requests,
// the batch response envelope, content blocks, and the streaming event
// grammar emitted by the streaming bridge.
package messages

import "encoding/json"

// ContentBlock is the tagged-union of Anthropic message content. Concrete
// implementations carry their own fields; BlockType reports the wire
// "type" discriminator.
type ContentBlock interface {
	BlockType() string
}

// TextBlock is a plain-text content block.
type TextBlock struct {
	Text string `json:"text"`
}

func (TextBlock) BlockType() string { return "text" }

// ImageSource is the tagged source of an ImageBlock: either a URL or
// inline base64 data.
type ImageSource struct {
	Type      string `json:"type"` // "url" | "base64"
	URL       string `json:"url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
}

// ImageBlock carries an image by URL or inline base64 data.
type ImageBlock struct {
	Source ImageSource `json:"source"`
}

func (ImageBlock) BlockType() string { return "image" }

// ToolUseBlock represents a tool invocation requested by the assistant.
type ToolUseBlock struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

func (ToolUseBlock) BlockType() string { return "tool_use" }

// ToolResultBlock carries the result of a tool invocation back to the model.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
}

func (ToolResultBlock) BlockType() string { return "tool_result" }

// ThinkingBlock carries extended-thinking / reasoning text.
type ThinkingBlock struct {
	Thinking  string `json:"thinking"`
	Signature string `json:"signature"`
}

func (ThinkingBlock) BlockType() string { return "thinking" }

// UnknownBlock is the fail-safe fallback for a content block whose "type"
// this package does not recognize. Its Raw field preserves the original
// JSON so callers can re-serialize it verbatim.
type UnknownBlock struct {
	Type string
	Raw  json.RawMessage
}

func (u UnknownBlock) BlockType() string {
	if u.Type == "" {
		return "unknown"
	}
	return u.Type
}

type rawBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Source    json.RawMessage `json:"source"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	Thinking  string          `json:"thinking"`
	Signature string          `json:"signature"`
}

// DecodeContentBlock decodes a single JSON content block into its tagged
// variant. Missing fields decode to zero values; an unrecognized type
// produces an UnknownBlock carrying the original bytes so the caller can
// fall back to serializing it as text (per the Anthropic fail-safe rule).
func DecodeContentBlock(raw json.RawMessage) (ContentBlock, error) {
	var rb rawBlock
	if err := json.Unmarshal(raw, &rb); err != nil {
		return nil, err
	}
	switch rb.Type {
	case "text":
		return TextBlock{Text: rb.Text}, nil
	case "image":
		src := decodeImageSource(rb.Source)
		return ImageBlock{Source: src}, nil
	case "tool_use":
		return ToolUseBlock{ID: rb.ID, Name: rb.Name, Input: rb.Input}, nil
	case "tool_result":
		return ToolResultBlock{ToolUseID: rb.ToolUseID, Content: toolResultText(rb.Content)}, nil
	case "thinking":
		return ThinkingBlock{Thinking: rb.Thinking, Signature: rb.Signature}, nil
	default:
		return UnknownBlock{Type: rb.Type, Raw: raw}, nil
	}
}

func decodeImageSource(raw json.RawMessage) ImageSource {
	var src ImageSource
	if len(raw) == 0 {
		return src
	}
	_ = json.Unmarshal(raw, &src)
	return src
}

// toolResultText flattens a tool_result's content, which may be a bare
// string or a list of text blocks, into plain text.
func toolResultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []rawBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		out := ""
		for _, b := range blocks {
			if b.Type == "text" {
				out += b.Text
			}
		}
		return out
	}
	return string(raw)
}

// DecodeContent normalizes an Anthropic message's "content" field, which
// may be a bare string (shorthand for a single text block) or a list of
// block objects, into an ordered slice of ContentBlock.
func DecodeContent(raw json.RawMessage) ([]ContentBlock, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []ContentBlock{TextBlock{Text: s}}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	blocks := make([]ContentBlock, 0, len(items))
	for _, item := range items {
		b, err := DecodeContentBlock(item)
		if err != nil {
			continue
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// EncodeBlock renders a ContentBlock back into its Anthropic JSON shape.
func EncodeBlock(b ContentBlock) (map[string]any, error) {
	switch v := b.(type) {
	case TextBlock:
		return map[string]any{"type": "text", "text": v.Text}, nil
	case ImageBlock:
		return map[string]any{"type": "image", "source": v.Source}, nil
	case ToolUseBlock:
		var input any = map[string]any{}
		if len(v.Input) > 0 {
			_ = json.Unmarshal(v.Input, &input)
		}
		return map[string]any{"type": "tool_use", "id": v.ID, "name": v.Name, "input": input}, nil
	case ToolResultBlock:
		return map[string]any{"type": "tool_result", "tool_use_id": v.ToolUseID, "content": v.Content}, nil
	case ThinkingBlock:
		return map[string]any{"type": "thinking", "thinking": v.Thinking, "signature": v.Signature}, nil
	case UnknownBlock:
		var m map[string]any
		if err := json.Unmarshal(v.Raw, &m); err == nil {
			return m, nil
		}
		return map[string]any{"type": v.Type}, nil
	default:
		return nil, nil
	}
}
