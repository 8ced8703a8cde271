package transform

import (
	"encoding/json"
	"fmt"

	"github.com/anthroshim/msgshim/pkg/messages"
	"github.com/anthroshim/msgshim/pkg/proxyerrors"
	"github.com/anthroshim/msgshim/pkg/responses"
)

// Mode selects how ConvertOpenAIToAnthropic interprets its input.
type Mode string

const (
	// ModeAuto inspects the input's shape to pick one of the other modes.
	ModeAuto Mode = "auto"
	// ModeInput treats the data as a Responses request "input" value
	// (a string, a message object, or a list of either).
	ModeInput Mode = "input"
	// ModeResponse treats the data as a full Responses object with an
	// "output" item list.
	ModeResponse Mode = "response"
	// ModeOutput treats the data as a bare output item list.
	ModeOutput Mode = "output"
)

// ConvertedRequest is the Anthropic Messages request shape produced by
// the batch converter: an optional system string plus messages.
type ConvertedRequest struct {
	System   string
	Messages []messages.Message
}

// MarshalJSON renders the converted request with content blocks in
// their Anthropic wire shapes and the system key omitted when empty.
func (c ConvertedRequest) MarshalJSON() ([]byte, error) {
	msgs := make([]map[string]any, 0, len(c.Messages))
	for _, m := range c.Messages {
		content := make([]map[string]any, 0, len(m.Content))
		for _, b := range m.Content {
			enc, err := messages.EncodeBlock(b)
			if err != nil {
				return nil, err
			}
			if enc != nil {
				content = append(content, enc)
			}
		}
		msgs = append(msgs, map[string]any{"role": m.Role, "content": content})
	}
	out := map[string]any{"messages": msgs}
	if c.System != "" {
		out["system"] = c.System
	}
	return json.Marshal(out)
}

// ConvertOpenAIToAnthropic converts an OpenAI Responses payload (a
// response object, a raw output item list, or a request input value,
// per mode) into an Anthropic Messages request shape. data is a decoded
// JSON value as produced by encoding/json into any.
func ConvertOpenAIToAnthropic(data any, mode Mode, opts Options) (*ConvertedRequest, error) {
	switch mode {
	case ModeAuto, ModeInput, ModeResponse, ModeOutput:
	default:
		return nil, proxyerrors.InvalidInput(fmt.Sprintf("mode must be one of auto, input, response, output; got %q", mode), nil)
	}

	if mode == ModeAuto {
		detected, err := autoDetectMode(data)
		if err != nil {
			return nil, err
		}
		mode = detected
	}

	var items []responses.Item
	var instructions string
	switch mode {
	case ModeResponse:
		obj, ok := data.(map[string]any)
		if !ok {
			return nil, proxyerrors.InvalidInput("mode=response expects a response object with an output list", nil)
		}
		output, ok := obj["output"].([]any)
		if !ok {
			return nil, proxyerrors.InvalidInput("mode=response expects a response object with an output list", nil)
		}
		instructions, _ = obj["instructions"].(string)
		items = decodeItemList(output)

	case ModeOutput:
		list, ok := data.([]any)
		if !ok {
			return nil, proxyerrors.InvalidInput("mode=output expects a list of output items", nil)
		}
		items = decodeItemList(list)

	case ModeInput:
		normalized, err := normalizeInputToItems(data)
		if err != nil {
			return nil, err
		}
		items = normalized
	}

	system, msgs := ItemsToMessages(items, instructions, opts)
	return &ConvertedRequest{System: system, Messages: msgs}, nil
}

// autoDetectMode mirrors the shape heuristic the batch CLI documents:
// an object with an output list is a response; a list whose first
// element carries an item "type" is an output list; a list (or object)
// of role/content messages is request input.
func autoDetectMode(data any) (Mode, error) {
	switch v := data.(type) {
	case map[string]any:
		if _, ok := v["output"].([]any); ok {
			return ModeResponse, nil
		}
		_, hasRole := v["role"]
		_, hasContent := v["content"]
		if hasRole && hasContent {
			return ModeInput, nil
		}
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]any); ok {
				switch first["type"] {
				case "message", "function_call", "reasoning", "custom_tool_call":
					return ModeOutput, nil
				}
				if _, ok := first["role"]; ok {
					return ModeInput, nil
				}
			}
		}
		return ModeOutput, nil
	}
	return "", proxyerrors.InvalidInput("could not auto-detect mode for provided data", nil)
}

func decodeItemList(list []any) []responses.Item {
	items := make([]responses.Item, 0, len(list))
	for _, el := range list {
		raw, err := json.Marshal(el)
		if err != nil {
			continue
		}
		item, err := responses.DecodeItem(raw)
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

// normalizeInputToItems accepts the shapes a Responses request's input
// field allows: a bare string, a single role/content object, or a list
// mixing both.
func normalizeInputToItems(data any) ([]responses.Item, error) {
	switch v := data.(type) {
	case string:
		return []responses.Item{userTextItem(v)}, nil
	case map[string]any:
		if item, ok := messageObjectToItem(v); ok {
			return []responses.Item{item}, nil
		}
	case []any:
		var items []responses.Item
		for _, el := range v {
			switch e := el.(type) {
			case string:
				items = append(items, userTextItem(e))
			case map[string]any:
				if item, ok := messageObjectToItem(e); ok {
					items = append(items, item)
				}
			}
		}
		return items, nil
	}
	return nil, proxyerrors.InvalidInput("unsupported OpenAI input shape", nil)
}

func userTextItem(text string) responses.Item {
	return responses.Item{
		Type:         "message",
		Role:         "user",
		ContentParts: []responses.ContentPart{{Type: "input_text", Text: text}},
	}
}

func messageObjectToItem(obj map[string]any) (responses.Item, bool) {
	role, hasRole := obj["role"].(string)
	content, hasContent := obj["content"]
	if !hasRole || !hasContent {
		return responses.Item{}, false
	}
	return responses.Item{
		Type:         "message",
		Role:         role,
		ContentParts: normalizeInputContent(content),
	}, true
}

func normalizeInputContent(content any) []responses.ContentPart {
	switch v := content.(type) {
	case nil:
		return nil
	case string:
		return []responses.ContentPart{{Type: "input_text", Text: v}}
	case []any:
		var parts []responses.ContentPart
		for _, el := range v {
			obj, ok := el.(map[string]any)
			if !ok {
				continue
			}
			raw, err := json.Marshal(obj)
			if err != nil {
				continue
			}
			var part responses.ContentPart
			if err := json.Unmarshal(raw, &part); err != nil {
				continue
			}
			parts = append(parts, part)
		}
		return parts
	default:
		return []responses.ContentPart{{Type: "input_text", Text: fmt.Sprintf("%v", v)}}
	}
}
