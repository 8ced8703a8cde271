// Package responses models the OpenAI Responses wire format consumed
// and produced on the south side of the proxy: request bodies, output
// items, and the granular SSE event grammar.
package responses

import "encoding/json"

// Request is the body posted to <base_url>/responses.
type Request struct {
	Model           string          `json:"model"`
	Input           []Item          `json:"input"`
	Instructions    string          `json:"instructions,omitempty"`
	MaxOutputTokens *int            `json:"max_output_tokens,omitempty"`
	Temperature     *float64        `json:"temperature,omitempty"`
	TopP            *float64        `json:"top_p,omitempty"`
	Tools           []Tool          `json:"tools,omitempty"`
	ToolChoice      json.RawMessage `json:"tool_choice,omitempty"`
	Stream          *bool           `json:"stream,omitempty"`
	Store           *bool           `json:"store,omitempty"`
	Reasoning       map[string]any  `json:"reasoning,omitempty"`
}

// Tool is an OpenAI function-tool definition.
type Tool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Item is a single entry of Request.Input or Response.Output: a
// heterogeneous union of message/function_call/function_call_output/
// custom_tool_call/reasoning. DecodeItem populates ContentParts for any
// item that carries a content list, whatever its Type.
type Item struct {
	Type         string        `json:"type"`
	Role         string        `json:"role,omitempty"`
	ContentParts []ContentPart `json:"content,omitempty"`
	ID           string        `json:"id,omitempty"`
	CallID       string        `json:"call_id,omitempty"`
	Name         string        `json:"name,omitempty"`
	Arguments    string        `json:"arguments,omitempty"`
	Input        string        `json:"input,omitempty"`
	Output       string        `json:"output,omitempty"`
	Summary      string        `json:"-"`
}

// ContentPart is one part of a message item's content array.
type ContentPart struct {
	Type     string `json:"type"` // input_text | output_text | input_image | output_image
	Text     string `json:"text,omitempty"`
	ImageURL any    `json:"image_url,omitempty"`
}
