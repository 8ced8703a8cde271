// Package streambridge implements the streaming state machine of the
// proxy: it consumes one decoded OpenAI Responses SSE event at a time
// and produces zero or more Anthropic Messages streaming events.
//
// The two grammars disagree on structure: Responses emits item-scoped
// deltas side by side (text can interleave with tool arguments), while
// Anthropic requires non-overlapping, sequentially indexed content
// blocks. The bridge therefore keeps at most one block open, queues
// tool calls in announcement order, buffers argument JSON for tools
// that are not yet at the head of the queue, and holds text that
// arrives while a tool block is open until that block closes.
package streambridge

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/anthroshim/msgshim/pkg/messages"
	"github.com/anthroshim/msgshim/pkg/responses"
)

type blockKind int

const (
	blockNone blockKind = iota
	blockText
	blockTool
)

type toolCallState struct {
	callID       string
	name         string
	partialJSON  strings.Builder
	emittedChars int
}

// Bridge is the per-stream state machine. The zero value is not usable;
// construct with NewBridge. A Bridge is not safe for concurrent use:
// one stream, one goroutine.
type Bridge struct {
	messageID string
	model     string

	started bool
	ended   bool

	contentIndex         int
	activeBlock          blockKind
	activeToolItem       string
	activeIndex          int
	lastEmittedBlockType string

	toolCalls map[string]*toolCallState
	toolQueue []string

	pendingText []string

	keepReasoningSummary bool
	reasoningSummary     string
	reasoningEmitted     bool

	stopReason string
	usage      messages.Usage
}

// NewBridge constructs a Bridge for one stream. messageID and model
// seed the message_start event; an empty messageID synthesizes one
// (matching the CLI/server's own id-generation fallback), and model
// may be corrected later by a response.created event before any
// content is emitted.
func NewBridge(messageID, model string, keepReasoningSummary bool) *Bridge {
	if messageID == "" {
		messageID = "msg_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	}
	if model == "" {
		model = "unknown"
	}
	return &Bridge{
		messageID:            messageID,
		model:                model,
		toolCalls:            map[string]*toolCallState{},
		keepReasoningSummary: keepReasoningSummary,
	}
}

// Feed advances the state machine by one upstream event, returning the
// Anthropic events it produces (often zero or one, occasionally a
// short burst when a block boundary closes and another opens). Feed is
// a no-op once the stream has reached its terminal message_stop.
func (b *Bridge) Feed(ev responses.StreamEvent) []messages.Event {
	if b.ended {
		return nil
	}
	switch {
	case ev.Type == "response.created":
		if ev.Response != nil && ev.Response.Model != "" {
			b.model = ev.Response.Model
		}
		return nil

	case strings.HasPrefix(ev.Type, "response.reasoning_summary"):
		return b.handleReasoningSummary(ev)

	case strings.HasPrefix(ev.Type, "response.reasoning"):
		return nil

	case ev.Type == "response.output_item.added":
		return b.handleItemAdded(ev)

	case ev.Type == "response.output_text.delta", ev.Type == "response.refusal.delta":
		// refusal.delta has no Anthropic block kind of its own; folded
		// into the active text block alongside output_text.delta.
		return b.handleTextDelta(ev.Delta)

	case ev.Type == "response.output_text.done":
		return nil

	case ev.Type == "response.function_call_arguments.delta":
		return b.handleFunctionArgsDelta(ev)

	case ev.Type == "response.function_call_arguments.done":
		return b.handleFunctionArgsDone(ev)

	case ev.Type == "response.custom_tool_call_input.delta":
		return b.handleCustomInputDelta(ev)

	case ev.Type == "response.custom_tool_call_input.done":
		return b.handleCustomInputDone(ev)

	case ev.Type == "response.output_item.done":
		return b.handleItemDone(ev)

	case ev.Type == "response.completed", ev.Type == "response.incomplete", ev.Type == "response.failed":
		return b.handleTerminal(ev)
	}
	return nil
}

// End signals upstream EOF without a terminal response event having
// arrived. If the stream never started (no content was ever emitted),
// this is a no-op; otherwise it synthesizes the same closing sequence
// handleTerminal would have produced, with stop_reason defaulting to
// "end_turn". Idempotent: a second call after Feed or End has already
// ended the stream returns nil.
func (b *Bridge) End() []messages.Event {
	if b.ended || !b.started {
		return nil
	}
	return b.closeOut()
}

func (b *Bridge) ensureStarted() []messages.Event {
	if b.started {
		return nil
	}
	b.started = true
	return []messages.Event{messages.MessageStart(b.messageID, b.model)}
}

func (b *Bridge) ensureTextBlock() []messages.Event {
	if b.activeBlock == blockText {
		return nil
	}
	out := b.closeActive()
	b.activeBlock = blockText
	b.activeIndex = b.contentIndex
	b.contentIndex++
	b.lastEmittedBlockType = "text"
	out = append(out, messages.ContentBlockStart(b.activeIndex, map[string]any{"type": "text", "text": ""}))
	return out
}

// ensureToolBlock opens the block for itemID if it is the head of the
// tool queue and not already open, optionally flushing any JSON
// buffered in partialJSON past emittedChars so far.
func (b *Bridge) ensureToolBlock(itemID string, emitBuffered bool) []messages.Event {
	if b.activeBlock == blockTool && b.activeToolItem == itemID {
		return nil
	}
	if len(b.toolQueue) > 0 && b.toolQueue[0] != itemID {
		return nil
	}
	tc, ok := b.toolCalls[itemID]
	if !ok {
		return nil
	}

	out := b.closeActive()
	b.activeBlock = blockTool
	b.activeToolItem = itemID
	b.activeIndex = b.contentIndex
	b.contentIndex++
	b.lastEmittedBlockType = "tool_use"

	out = append(out, messages.ContentBlockStart(b.activeIndex, map[string]any{
		"type": "tool_use", "id": tc.callID, "name": tc.name, "input": map[string]any{},
	}))
	out = append(out, messages.InputJSONDelta(b.activeIndex, ""))

	if emitBuffered {
		pj := tc.partialJSON.String()
		if tc.emittedChars < len(pj) {
			suffix := pj[tc.emittedChars:]
			if suffix != "" {
				out = append(out, messages.InputJSONDelta(b.activeIndex, suffix))
				tc.emittedChars = len(pj)
			}
		}
	}
	return out
}

// closeActive closes whichever block is currently open (a no-op if
// none is), popping the tool queue's head when the closed block was
// the most recently opened tool_use block.
func (b *Bridge) closeActive() []messages.Event {
	if b.activeBlock == blockNone {
		return nil
	}
	idx := b.activeIndex
	b.activeBlock = blockNone
	b.activeToolItem = ""
	out := []messages.Event{messages.ContentBlockStop(idx)}
	if len(b.toolQueue) > 0 && b.lastEmittedBlockType == "tool_use" {
		b.toolQueue = b.toolQueue[1:]
	}
	return out
}

func (b *Bridge) emitThinking(summary string) []messages.Event {
	text := strings.TrimSpace(summary)
	if text == "" {
		return nil
	}
	out := b.ensureStarted()
	out = append(out, b.closeActive()...)
	idx := b.contentIndex
	b.contentIndex++
	b.lastEmittedBlockType = "thinking"
	out = append(out, messages.ContentBlockStart(idx, map[string]any{"type": "thinking", "thinking": "", "signature": ""}))
	out = append(out, messages.ThinkingDelta(idx, text))
	out = append(out, messages.ContentBlockStop(idx))
	return out
}

func (b *Bridge) handleReasoningSummary(ev responses.StreamEvent) []messages.Event {
	if !b.keepReasoningSummary {
		return nil
	}
	switch {
	case strings.HasSuffix(ev.Type, ".delta"):
		if ev.Delta != "" {
			b.reasoningSummary += ev.Delta
		}
	case strings.HasSuffix(ev.Type, ".done"):
		if s := firstNonEmpty(ev.Summary, ev.Text, ev.Delta); s != "" {
			b.reasoningSummary = s
		}
	default:
		if s := firstNonEmpty(ev.Summary, ev.Text); s != "" {
			b.reasoningSummary = s
		}
	}
	return nil
}

func (b *Bridge) handleItemAdded(ev responses.StreamEvent) []messages.Event {
	if ev.Item == nil {
		return nil
	}
	switch ev.Item.Type {
	case "function_call", "custom_tool_call":
		itemID := firstNonEmpty(ev.Item.ID, ev.ItemID)
		callID := firstNonEmpty(ev.Item.CallID, ev.Item.ID, itemID)
		b.toolCalls[itemID] = &toolCallState{callID: callID, name: ev.Item.Name}
		b.toolQueue = append(b.toolQueue, itemID)
	case "reasoning":
		if b.keepReasoningSummary && ev.Item.Summary != "" {
			b.reasoningSummary = ev.Item.Summary
		}
	}
	return nil
}

func (b *Bridge) handleTextDelta(delta string) []messages.Event {
	out := b.ensureStarted()
	if delta == "" {
		return out
	}
	if b.activeBlock == blockTool {
		b.pendingText = append(b.pendingText, delta)
		return out
	}
	out = append(out, b.ensureTextBlock()...)
	out = append(out, messages.TextDelta(b.activeIndex, delta))
	return out
}

func (b *Bridge) handleFunctionArgsDelta(ev responses.StreamEvent) []messages.Event {
	tc, ok := b.toolCalls[ev.ItemID]
	if !ok {
		return nil
	}
	deltaStr := ev.Delta
	tc.partialJSON.WriteString(deltaStr)

	out := b.ensureStarted()
	out = append(out, b.ensureToolBlock(ev.ItemID, false)...)

	if b.activeBlock == blockTool && b.activeToolItem == ev.ItemID {
		pj := tc.partialJSON.String()
		bufferedEnd := len(pj) - len(deltaStr)
		if tc.emittedChars < bufferedEnd {
			prefix := pj[tc.emittedChars:bufferedEnd]
			if prefix != "" {
				out = append(out, messages.InputJSONDelta(b.activeIndex, prefix))
				tc.emittedChars = bufferedEnd
			}
		}
		if deltaStr != "" {
			out = append(out, messages.InputJSONDelta(b.activeIndex, deltaStr))
			tc.emittedChars += len(deltaStr)
		}
	}
	return out
}

func (b *Bridge) handleFunctionArgsDone(ev responses.StreamEvent) []messages.Event {
	tc, ok := b.toolCalls[ev.ItemID]
	if !ok {
		return nil
	}
	out := b.ensureStarted()
	out = append(out, b.ensureToolBlock(ev.ItemID, true)...)

	if ev.Arguments != nil && tc.partialJSON.Len() == 0 {
		tc.partialJSON.WriteString(*ev.Arguments)
	}
	if b.activeBlock == blockTool && b.activeToolItem == ev.ItemID {
		pj := tc.partialJSON.String()
		if tc.emittedChars < len(pj) {
			suffix := pj[tc.emittedChars:]
			if suffix != "" {
				out = append(out, messages.InputJSONDelta(b.activeIndex, suffix))
				tc.emittedChars = len(pj)
			}
		}
	}
	return out
}

func (b *Bridge) handleCustomInputDelta(ev responses.StreamEvent) []messages.Event {
	tc, ok := b.toolCalls[ev.ItemID]
	if !ok {
		return nil
	}
	tc.partialJSON.WriteString(ev.Delta)
	return nil
}

// handleCustomInputDone wraps the accumulated raw custom-tool input as
// {"input": "<raw>"} and emits it as exactly one input_json_delta after
// the empty delta that opens the tool block, so the block must be opened
// without flushing the buffer first.
func (b *Bridge) handleCustomInputDone(ev responses.StreamEvent) []messages.Event {
	tc, ok := b.toolCalls[ev.ItemID]
	if !ok {
		return nil
	}
	raw := tc.partialJSON.String()
	if ev.Input != nil {
		raw = *ev.Input
	}
	wrapped := wrapCustomToolInput(raw)
	tc.partialJSON.Reset()
	tc.partialJSON.WriteString(wrapped)

	out := b.ensureStarted()
	out = append(out, b.ensureToolBlock(ev.ItemID, false)...)
	if b.activeBlock == blockTool && b.activeToolItem == ev.ItemID {
		out = append(out, messages.InputJSONDelta(b.activeIndex, wrapped))
		tc.emittedChars = len(wrapped)
	}
	return out
}

func (b *Bridge) handleItemDone(ev responses.StreamEvent) []messages.Event {
	if ev.Item == nil {
		return nil
	}
	switch ev.Item.Type {
	case "message":
		return b.closeActive()
	case "function_call", "custom_tool_call":
		itemID := firstNonEmpty(ev.Item.ID, ev.ItemID)
		out := b.ensureStarted()
		out = append(out, b.ensureToolBlock(itemID, true)...)
		out = append(out, b.closeActive()...)
		if len(b.pendingText) > 0 {
			out = append(out, b.ensureTextBlock()...)
			for _, chunk := range b.pendingText {
				out = append(out, messages.TextDelta(b.activeIndex, chunk))
			}
			b.pendingText = nil
		}
		return out
	}
	return nil
}

func (b *Bridge) handleTerminal(ev responses.StreamEvent) []messages.Event {
	if ev.Response != nil {
		if ev.Response.Usage != nil {
			b.usage = messages.Usage{OutputTokens: ev.Response.Usage.OutputTokens}
		}
		b.stopReason = ev.Response.StopReason()
	}
	return b.closeOut()
}

// closeOut emits the shared closing sequence for both a proper
// terminal event and an End()-synthesized one: close any open block,
// optionally emit a terminal thinking block, ensure message_start has
// been emitted even if the stream carried no content at all, then
// message_delta + message_stop.
func (b *Bridge) closeOut() []messages.Event {
	if b.ended {
		return nil
	}
	if b.stopReason == "" {
		b.stopReason = "end_turn"
	}

	out := b.closeActive()
	if b.keepReasoningSummary && b.reasoningSummary != "" && !b.reasoningEmitted {
		out = append(out, b.emitThinking(b.reasoningSummary)...)
		b.reasoningEmitted = true
	}
	out = append(out, b.ensureStarted()...)

	usage := messages.Usage{}
	if b.usage.OutputTokens != nil {
		usage.OutputTokens = b.usage.OutputTokens
	}
	out = append(out, messages.MessageDelta(b.stopReason, usage))
	out = append(out, messages.MessageStop())
	b.ended = true
	return out
}

func wrapCustomToolInput(raw string) string {
	b, err := json.Marshal(map[string]any{"input": raw})
	if err != nil {
		return `{"input":""}`
	}
	return string(b)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
