package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anthroshim/msgshim/pkg/messages"
)

func mustRequest(t *testing.T, body string) *messages.Request {
	t.Helper()
	req, err := messages.ParseRequest([]byte(body))
	require.NoError(t, err)
	return req
}

func TestToResponsesRequestBasicTextMessage(t *testing.T) {
	req := mustRequest(t, `{
		"model": "claude-3-5-sonnet-20241022",
		"max_tokens": 1024,
		"system": "be concise",
		"messages": [{"role": "user", "content": "hello"}]
	}`)

	out, err := ToResponsesRequest(req, Options{})
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-sonnet-20241022", out.Model)
	assert.Equal(t, "be concise", out.Instructions)
	require.NotNil(t, out.MaxOutputTokens)
	assert.Equal(t, 1024, *out.MaxOutputTokens)
	require.Len(t, out.Input, 1)
	assert.Equal(t, "message", out.Input[0].Type)
	assert.Equal(t, "user", out.Input[0].Role)
	require.Len(t, out.Input[0].ContentParts, 1)
	assert.Equal(t, "input_text", out.Input[0].ContentParts[0].Type)
	assert.Equal(t, "hello", out.Input[0].ContentParts[0].Text)
}

func TestToResponsesRequestToolUseAndResult(t *testing.T) {
	req := mustRequest(t, `{
		"model": "claude-3-5-sonnet-20241022",
		"messages": [
			{"role": "assistant", "content": [
				{"type": "tool_use", "id": "toolu_1", "name": "get_weather", "input": {"city": "nyc"}}
			]},
			{"role": "user", "content": [
				{"type": "tool_result", "tool_use_id": "toolu_1", "content": "72F"}
			]}
		]
	}`)

	out, err := ToResponsesRequest(req, Options{})
	require.NoError(t, err)
	require.Len(t, out.Input, 2)

	call := out.Input[0]
	assert.Equal(t, "function_call", call.Type)
	assert.Equal(t, "toolu_1", call.CallID)
	assert.Equal(t, "get_weather", call.Name)
	assert.JSONEq(t, `{"city":"nyc"}`, call.Arguments)

	result := out.Input[1]
	assert.Equal(t, "function_call_output", result.Type)
	assert.Equal(t, "toolu_1", result.CallID)
	assert.Equal(t, "72F", result.Output)
}

func TestToResponsesRequestSystemBlocksJoined(t *testing.T) {
	req := mustRequest(t, `{
		"model": "claude-3-5-sonnet-20241022",
		"system": [{"type": "text", "text": "part one "}, {"type": "text", "text": "part two"}],
		"messages": [{"role": "user", "content": "hi"}]
	}`)
	out, err := ToResponsesRequest(req, Options{})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", out.Instructions)
}

func TestToResponsesRequestImageBase64ToDataURL(t *testing.T) {
	req := mustRequest(t, `{
		"model": "claude-3-5-sonnet-20241022",
		"messages": [{"role": "user", "content": [
			{"type": "image", "source": {"type": "base64", "media_type": "image/png", "data": "QUJD"}}
		]}]
	}`)
	out, err := ToResponsesRequest(req, Options{})
	require.NoError(t, err)
	require.Len(t, out.Input, 1)
	part := out.Input[0].ContentParts[0]
	assert.Equal(t, "input_image", part.Type)
	assert.Equal(t, "data:image/png;base64,QUJD", part.ImageURL)
}

func TestToResponsesRequestImageURLObjectOption(t *testing.T) {
	req := mustRequest(t, `{
		"model": "claude-3-5-sonnet-20241022",
		"messages": [{"role": "user", "content": [
			{"type": "image", "source": {"type": "url", "url": "https://example.com/cat.png"}}
		]}]
	}`)
	out, err := ToResponsesRequest(req, Options{ImageURLObject: true})
	require.NoError(t, err)
	part := out.Input[0].ContentParts[0]
	m, ok := part.ImageURL.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/cat.png", m["url"])
}

func TestToResponsesRequestToolChoiceTranslation(t *testing.T) {
	req := mustRequest(t, `{
		"model": "claude-3-5-sonnet-20241022",
		"tool_choice": {"type": "tool", "name": "get_weather"},
		"tools": [{"name": "get_weather", "description": "look up weather", "input_schema": {"type": "object"}}],
		"messages": [{"role": "user", "content": "hi"}]
	}`)
	out, err := ToResponsesRequest(req, Options{})
	require.NoError(t, err)
	var choice map[string]any
	require.NoError(t, json.Unmarshal(out.ToolChoice, &choice))
	assert.Equal(t, "function", choice["type"])
	assert.Equal(t, "get_weather", choice["name"])
	require.Len(t, out.Tools, 1)
	assert.Equal(t, "function", out.Tools[0].Type)
	assert.Equal(t, "get_weather", out.Tools[0].Name)
}

func TestToResponsesRequestReasoningMerge(t *testing.T) {
	req := mustRequest(t, `{"model": "claude-3-5-sonnet-20241022", "messages": [{"role": "user", "content": "hi"}]}`)
	out, err := ToResponsesRequest(req, Options{Reasoning: map[string]any{"effort": "medium"}})
	require.NoError(t, err)
	assert.Equal(t, "medium", out.Reasoning["effort"])
}

func TestToResponsesRequestNilRequestIsInvalidInput(t *testing.T) {
	_, err := ToResponsesRequest(nil, Options{})
	assert.Error(t, err)
}

func TestToResponsesRequestDropsNonUserAssistantRoles(t *testing.T) {
	req := mustRequest(t, `{
		"model": "claude-3-5-sonnet-20241022",
		"messages": [
			{"role": "developer", "content": "ignored"},
			{"role": "user", "content": "hi"}
		]
	}`)
	out, err := ToResponsesRequest(req, Options{})
	require.NoError(t, err)
	require.Len(t, out.Input, 1)
	assert.Equal(t, "user", out.Input[0].Role)
}
