package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anthroshim/msgshim/pkg/responses"
)

func TestResponseToEnvelopeBasic(t *testing.T) {
	resp, err := responses.DecodeResponse([]byte(`{
		"id": "resp_123",
		"model": "gpt-4.1",
		"output": [{"type": "message", "role": "assistant", "content": [{"type": "output_text", "text": "hello"}]}],
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`))
	require.NoError(t, err)

	env := ResponseToEnvelope(resp, Options{})
	assert.Equal(t, "resp_123", env.ID)
	assert.Equal(t, "gpt-4.1", env.Model)
	assert.Equal(t, "assistant", env.Role)
	require.NotNil(t, env.StopReason)
	assert.Equal(t, "end_turn", *env.StopReason)
	require.Len(t, env.Content, 1)
	require.NotNil(t, env.Usage.InputTokens)
	assert.Equal(t, 10, *env.Usage.InputTokens)
}

func TestResponseToEnvelopeToolUseStopReason(t *testing.T) {
	resp, err := responses.DecodeResponse([]byte(`{
		"id": "resp_124",
		"model": "gpt-4.1",
		"output": [{"type": "function_call", "call_id": "call_1", "name": "get_weather", "arguments": "{}"}]
	}`))
	require.NoError(t, err)
	env := ResponseToEnvelope(resp, Options{})
	require.NotNil(t, env.StopReason)
	assert.Equal(t, "tool_use", *env.StopReason)
	require.Len(t, env.Content, 1)
}

func TestResponseToEnvelopeMaxTokensStopReason(t *testing.T) {
	resp, err := responses.DecodeResponse([]byte(`{
		"id": "resp_125",
		"model": "gpt-4.1",
		"output": [],
		"incomplete_details": {"reason": "max_tokens"}
	}`))
	require.NoError(t, err)
	env := ResponseToEnvelope(resp, Options{})
	require.NotNil(t, env.StopReason)
	assert.Equal(t, "max_tokens", *env.StopReason)
}

func TestResponseToEnvelopeSynthesizesIDWhenMissing(t *testing.T) {
	resp, err := responses.DecodeResponse([]byte(`{"output": []}`))
	require.NoError(t, err)
	env := ResponseToEnvelope(resp, Options{})
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, "unknown", env.Model)
}
