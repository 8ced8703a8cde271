package transform

import (
	"encoding/json"
	"strings"

	"github.com/anthroshim/msgshim/internal/jsonrepair"
	"github.com/anthroshim/msgshim/pkg/messages"
	"github.com/anthroshim/msgshim/pkg/responses"
)

// ItemsToMessages converts a Responses output/input item list plus an
// optional top-level instructions string into an Anthropic system
// string and an ordered list of Anthropic messages. A "message" item
// with role "system" overrides instructions: an embedded system item
// wins over the sibling top-level field.
func ItemsToMessages(items []responses.Item, instructions string, opts Options) (string, []messages.Message) {
	system := instructions
	var out []messages.Message

	ensure := func(role string) *messages.Message {
		if n := len(out); n > 0 && out[n-1].Role == role {
			return &out[n-1]
		}
		out = append(out, messages.Message{Role: role})
		return &out[len(out)-1]
	}

	for _, item := range items {
		switch item.Type {
		case "reasoning":
			if opts.KeepReasoningSummary && item.Summary != "" {
				m := ensure("assistant")
				m.Content = append(m.Content, messages.ThinkingBlock{Thinking: item.Summary})
			} else if opts.KeepReasoning {
				m := ensure("assistant")
				m.Content = append(m.Content, messages.TextBlock{Text: "[openai_reasoning]"})
			}

		case "message", "":
			if item.Role == "system" {
				if t := extractText(item.ContentParts); t != "" {
					system = t
				}
				continue
			}
			role := item.Role
			if role != "user" && role != "assistant" {
				role = "assistant"
			}
			m := ensure(role)
			m.Content = append(m.Content, contentPartsToBlocks(item.ContentParts, opts.KeepUnknown)...)

		case "function_call":
			m := ensure("assistant")
			m.Content = append(m.Content, messages.ToolUseBlock{
				ID:    firstNonEmptyStr(item.CallID, item.ID),
				Name:  item.Name,
				Input: parseToolArguments(item.Arguments),
			})

		case "custom_tool_call":
			m := ensure("assistant")
			inputJSON, _ := json.Marshal(map[string]any{"input": item.Input})
			m.Content = append(m.Content, messages.ToolUseBlock{
				ID:    firstNonEmptyStr(item.CallID, item.ID),
				Name:  item.Name,
				Input: inputJSON,
			})

		case "function_call_output":
			m := ensure("user")
			m.Content = append(m.Content, messages.ToolResultBlock{ToolUseID: item.CallID, Content: item.Output})

		default:
			if opts.KeepUnknown {
				m := ensure("assistant")
				b, _ := json.Marshal(item)
				m.Content = append(m.Content, messages.TextBlock{Text: string(b)})
			}
		}
	}

	filtered := out[:0]
	for _, m := range out {
		if len(m.Content) > 0 {
			filtered = append(filtered, m)
		}
	}
	return system, filtered
}

func contentPartsToBlocks(parts []responses.ContentPart, keepUnknown bool) []messages.ContentBlock {
	var out []messages.ContentBlock
	for _, p := range parts {
		switch p.Type {
		case "input_text", "output_text", "text":
			out = append(out, messages.TextBlock{Text: p.Text})
		case "input_image", "output_image", "image":
			if url := responses.ImagePartURL(p); url != "" {
				out = append(out, messages.ImageBlock{Source: messages.ImageSource{Type: "url", URL: url}})
			}
		default:
			if keepUnknown {
				b, _ := json.Marshal(p)
				out = append(out, messages.TextBlock{Text: string(b)})
			}
		}
	}
	return out
}

// parseToolArguments validates a function_call's arguments string. A
// stream cut off mid-arguments leaves truncated JSON behind, so an
// invalid payload gets one completion attempt before the _raw fallback.
func parseToolArguments(args string) json.RawMessage {
	args = strings.TrimSpace(args)
	if args == "" {
		return json.RawMessage("{}")
	}
	var probe any
	if err := json.Unmarshal([]byte(args), &probe); err != nil {
		if completed, ok := jsonrepair.Complete(args); ok {
			return json.RawMessage(completed)
		}
		b, _ := json.Marshal(map[string]any{"_raw": args})
		return b
	}
	return json.RawMessage(args)
}

func extractText(parts []responses.ContentPart) string {
	var sb strings.Builder
	for _, p := range parts {
		switch p.Type {
		case "input_text", "output_text", "text":
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func firstNonEmptyStr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
