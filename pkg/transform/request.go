package transform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/anthroshim/msgshim/internal/jsonmerge"
	"github.com/anthroshim/msgshim/pkg/messages"
	"github.com/anthroshim/msgshim/pkg/proxyerrors"
	"github.com/anthroshim/msgshim/pkg/responses"
)

// ToResponsesRequest converts an Anthropic Messages request into an
// OpenAI Responses request. Content blocks are walked in order; a
// tool_use or tool_result block flushes the message-in-progress so
// function_call items keep their position relative to surrounding text.
func ToResponsesRequest(req *messages.Request, opts Options) (*responses.Request, error) {
	if req == nil {
		return nil, proxyerrors.InvalidInput("request body must be a JSON object", nil)
	}

	items, err := anthropicMessagesToItems(req.Messages, opts)
	if err != nil {
		return nil, err
	}

	out := &responses.Request{
		Model: req.Model,
		Input: items,
	}
	if instr := anthropicSystemToText(req.System); instr != "" {
		out.Instructions = instr
	}
	if req.MaxTokens != nil {
		out.MaxOutputTokens = req.MaxTokens
	}
	if req.Temp != nil {
		out.Temperature = req.Temp
	}
	if req.TopP != nil {
		out.TopP = req.TopP
	}
	if len(req.Tools) > 0 {
		out.Tools = anthropicToolsToResponses(req.Tools)
	}
	if len(req.ToolChoice) > 0 {
		out.ToolChoice = anthropicToolChoiceToResponses(req.ToolChoice)
	}
	if req.Stream != nil {
		out.Stream = req.Stream
	}
	if len(opts.Reasoning) > 0 {
		out.Reasoning = jsonmerge.Merge(out.Reasoning, opts.Reasoning)
	}
	return out, nil
}

func anthropicMessagesToItems(msgs []messages.RawMessage, opts Options) ([]responses.Item, error) {
	var items []responses.Item
	for _, rm := range msgs {
		if rm.Role != "user" && rm.Role != "assistant" {
			continue
		}
		blocks, err := messages.DecodeContent(rm.Content)
		if err != nil {
			return nil, proxyerrors.InvalidInput("invalid message content", err)
		}

		textPartType, imagePartType := "input_text", "input_image"
		if rm.Role == "assistant" {
			textPartType, imagePartType = "output_text", "output_image"
		}

		var cur []responses.ContentPart
		flush := func() {
			if len(cur) == 0 {
				return
			}
			items = append(items, responses.Item{Type: "message", Role: rm.Role, ContentParts: cur})
			cur = nil
		}

		for _, b := range blocks {
			switch v := b.(type) {
			case messages.TextBlock:
				cur = append(cur, responses.ContentPart{Type: textPartType, Text: v.Text})
			case messages.ImageBlock:
				if url := imageSourceToURL(v.Source); url != "" {
					part := responses.ContentPart{Type: imagePartType}
					if opts.ImageURLObject {
						part.ImageURL = map[string]any{"url": url}
					} else {
						part.ImageURL = url
					}
					cur = append(cur, part)
				}
			case messages.ToolUseBlock:
				flush()
				items = append(items, toolUseToFunctionCall(v))
			case messages.ToolResultBlock:
				flush()
				items = append(items, responses.Item{Type: "function_call_output", CallID: v.ToolUseID, Output: v.Content})
			case messages.UnknownBlock:
				cur = append(cur, responses.ContentPart{Type: textPartType, Text: string(v.Raw)})
			}
		}
		flush()
	}
	return items, nil
}

func imageSourceToURL(src messages.ImageSource) string {
	switch src.Type {
	case "url":
		return src.URL
	case "base64":
		if src.Data == "" {
			return ""
		}
		mediaType := src.MediaType
		if mediaType == "" {
			mediaType = "image/png"
		}
		return fmt.Sprintf("data:%s;base64,%s", mediaType, src.Data)
	default:
		if src.URL != "" {
			return src.URL
		}
		return ""
	}
}

func toolUseToFunctionCall(v messages.ToolUseBlock) responses.Item {
	args := "{}"
	switch {
	case len(v.Input) == 0:
		// keep default "{}"
	default:
		var asStr string
		if json.Unmarshal(v.Input, &asStr) == nil {
			args = asStr
		} else {
			args = string(v.Input)
		}
	}
	return responses.Item{
		Type:      "function_call",
		ID:        "fc_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		CallID:    v.ID,
		Name:      v.Name,
		Arguments: args,
	}
}

func anthropicToolsToResponses(tools []messages.Tool) []responses.Tool {
	out := make([]responses.Tool, 0, len(tools))
	for _, t := range tools {
		if t.Name == "" {
			continue
		}
		out = append(out, responses.Tool{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
		})
	}
	return out
}

func anthropicToolChoiceToResponses(raw json.RawMessage) json.RawMessage {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return raw
	}
	var obj map[string]any
	if json.Unmarshal(raw, &obj) == nil {
		if obj["type"] == "tool" {
			if name, ok := obj["name"].(string); ok {
				b, err := json.Marshal(map[string]any{"type": "function", "name": name})
				if err == nil {
					return b
				}
			}
		}
	}
	return raw
}

func anthropicSystemToText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if json.Unmarshal(raw, &blocks) == nil {
		var sb strings.Builder
		for _, b := range blocks {
			if b.Type == "text" {
				sb.WriteString(b.Text)
			}
		}
		return sb.String()
	}
	var v any
	if json.Unmarshal(raw, &v) == nil && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}
