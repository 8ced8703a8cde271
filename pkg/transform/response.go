package transform

import (
	"strings"

	"github.com/google/uuid"

	"github.com/anthroshim/msgshim/pkg/messages"
	"github.com/anthroshim/msgshim/pkg/responses"
)

// ResponseToEnvelope converts a batch (non-streaming) Responses object
// into the Anthropic Messages response envelope, delegating the
// item-level work to ItemsToMessages and deriving stop_reason from
// Response.StopReason.
func ResponseToEnvelope(resp *responses.Response, opts Options) *messages.Envelope {
	_, msgs := ItemsToMessages(resp.Output, "", opts)

	var content []messages.ContentBlock
	for _, m := range msgs {
		if m.Role == "assistant" {
			content = append(content, m.Content...)
		}
	}

	id := resp.ID
	if id == "" {
		id = "msg_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	}
	model := resp.Model
	if model == "" {
		model = "unknown"
	}

	stopReason := resp.StopReason()
	usage := messages.Usage{}
	if resp.Usage != nil {
		usage.InputTokens = resp.Usage.InputTokens
		usage.OutputTokens = resp.Usage.OutputTokens
	}

	return &messages.Envelope{
		ID:           id,
		Type:         "message",
		Role:         "assistant",
		Content:      content,
		Model:        model,
		StopReason:   &stopReason,
		StopSequence: nil,
		Usage:        usage,
	}
}
