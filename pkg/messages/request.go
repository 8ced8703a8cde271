package messages

import "encoding/json"

// Message is a single Anthropic Messages request/response message: a
// role plus an ordered list of content blocks.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Tool is an Anthropic tool definition.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// Request is the decoded body of a POST /v1/messages call.
type Request struct {
	Model      string          `json:"model"`
	Messages   []RawMessage    `json:"messages"`
	System     json.RawMessage `json:"system,omitempty"`
	MaxTokens  *int            `json:"max_tokens,omitempty"`
	Temp       *float64        `json:"temperature,omitempty"`
	TopP       *float64        `json:"top_p,omitempty"`
	Tools      []Tool          `json:"tools,omitempty"`
	ToolChoice json.RawMessage `json:"tool_choice,omitempty"`
	Stream     *bool           `json:"stream,omitempty"`
}

// RawMessage is a message whose content has not yet been normalized into
// ContentBlock values. ParseRequest leaves it raw; request translation
// (transform.ToResponsesRequest) decodes it per message, after dropping
// roles outside {user, assistant}, so the block decode never runs for
// dropped messages.
type RawMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// ParseRequest decodes a raw Anthropic request body. Non-object bodies
// are reported to the caller as a JSON decode error; the caller maps
// that to the invalid-input error kind.
func ParseRequest(body []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Envelope is the Anthropic Messages response object, used both as the
// batch-response result and as the payload carried by message_start.
type Envelope struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Content      []ContentBlock `json:"content"`
	Model        string         `json:"model"`
	StopReason   *string        `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        Usage          `json:"usage"`
}

// Usage mirrors Anthropic's token accounting block.
type Usage struct {
	InputTokens  *int `json:"input_tokens,omitempty"`
	OutputTokens *int `json:"output_tokens,omitempty"`
}

// MarshalJSON renders the envelope with its content blocks encoded to
// their wire shapes and an explicit empty array (never null) for Content.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type alias struct {
		ID           string          `json:"id"`
		Type         string          `json:"type"`
		Role         string          `json:"role"`
		Content      []map[string]any `json:"content"`
		Model        string          `json:"model"`
		StopReason   *string         `json:"stop_reason"`
		StopSequence *string         `json:"stop_sequence"`
		Usage        Usage           `json:"usage"`
	}
	content := make([]map[string]any, 0, len(e.Content))
	for _, b := range e.Content {
		m, err := EncodeBlock(b)
		if err != nil {
			return nil, err
		}
		if m != nil {
			content = append(content, m)
		}
	}
	return json.Marshal(alias{
		ID:           e.ID,
		Type:         e.Type,
		Role:         e.Role,
		Content:      content,
		Model:        e.Model,
		StopReason:   e.StopReason,
		StopSequence: e.StopSequence,
		Usage:        e.Usage,
	})
}
