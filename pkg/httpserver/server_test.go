package httpserver

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anthroshim/msgshim/internal/config"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	config.ResetModelMapCache()
	t.Cleanup(config.ResetModelMapCache)
	return &config.AppConfig{
		OpenAI: config.OpenAIConfig{
			APIKey:  "test-key",
			BaseURL: "http://upstream.invalid/v1",
		},
		Logging:      config.LoggingConfig{MaxChars: 4000},
		ModelMapPath: filepath.Join(t.TempDir(), "absent.yml"),
	}
}

func postMessages(t *testing.T, srv *Server, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestBatchRequestRoundTrip(t *testing.T) {
	var upstreamBody map[string]any
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/responses", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &upstreamBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "resp_1",
			"model": "gpt-4.1",
			"output": [
				{"type": "message", "role": "assistant", "content": [{"type": "output_text", "text": "hi there"}]}
			],
			"usage": {"input_tokens": 3, "output_tokens": 2}
		}`))
	}))
	defer upstream.Close()

	cfg := testConfig(t)
	cfg.OpenAI.BaseURL = upstream.URL + "/v1"
	srv := New(cfg)

	rec := postMessages(t, srv, `{"model":"gpt-4.1","max_tokens":64,"messages":[{"role":"user","content":"hello"}]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The upstream request must carry the translated input and the forced
	// stateless mode.
	assert.Equal(t, false, upstreamBody["store"])
	assert.Equal(t, "gpt-4.1", upstreamBody["model"])
	input := upstreamBody["input"].([]any)
	require.Len(t, input, 1)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "resp_1", envelope["id"])
	assert.Equal(t, "assistant", envelope["role"])
	assert.Equal(t, "end_turn", envelope["stop_reason"])
	content := envelope["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "hi there", content[0].(map[string]any)["text"])
	usage := envelope["usage"].(map[string]any)
	assert.Equal(t, float64(2), usage["output_tokens"])
}

func TestStreamingRequestEmitsAnthropicSSE(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range []string{
			`{"type":"response.created","response":{"model":"gpt-4.1"}}`,
			`{"type":"response.output_text.delta","item_id":"item_1","delta":"Hel"}`,
			`{"type":"response.output_text.delta","item_id":"item_1","delta":"lo"}`,
			`{"type":"response.completed","response":{"id":"resp_1","model":"gpt-4.1","output":[],"usage":{"output_tokens":2}}}`,
		} {
			_, _ = io.WriteString(w, "data: "+ev+"\n\n")
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer upstream.Close()

	cfg := testConfig(t)
	cfg.OpenAI.BaseURL = upstream.URL + "/v1"
	srv := New(cfg)

	rec := postMessages(t, srv, `{"model":"gpt-4.1","stream":true,"messages":[{"role":"user","content":"hello"}]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var eventNames []string
	var text string
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventNames = append(eventNames, strings.TrimPrefix(line, "event: "))
		}
		if strings.HasPrefix(line, "data: ") {
			var ev map[string]any
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
			if ev["type"] == "content_block_delta" {
				text += ev["delta"].(map[string]any)["text"].(string)
			}
		}
	}
	assert.Equal(t, []string{
		"message_start",
		"content_block_start", "content_block_delta", "content_block_delta",
		"content_block_stop",
		"message_delta", "message_stop",
	}, eventNames)
	assert.Equal(t, "Hello", text)
}

func TestForceStreamBatchPathExtractsTerminalResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		require.Equal(t, true, body["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, `data: {"type":"response.output_text.delta","delta":"x"}`+"\n\n")
		_, _ = io.WriteString(w, `data: {"type":"response.completed","response":{"id":"resp_9","model":"gpt-4.1","output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"done"}]}]}}`+"\n\n")
	}))
	defer upstream.Close()

	cfg := testConfig(t)
	cfg.OpenAI.BaseURL = upstream.URL + "/v1"
	cfg.OpenAI.ForceStream = true
	srv := New(cfg)

	rec := postMessages(t, srv, `{"model":"gpt-4.1","messages":[{"role":"user","content":"hello"}]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "resp_9", envelope["id"])
	content := envelope["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "done", content[0].(map[string]any)["text"])
}

func TestForceStreamWithoutTerminalResponseIs502(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, `data: {"type":"response.output_text.delta","delta":"x"}`+"\n\n")
	}))
	defer upstream.Close()

	cfg := testConfig(t)
	cfg.OpenAI.BaseURL = upstream.URL + "/v1"
	cfg.OpenAI.ForceStream = true
	srv := New(cfg)

	rec := postMessages(t, srv, `{"model":"gpt-4.1","messages":[{"role":"user","content":"hello"}]}`, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMissingAPIKeyIs500(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenAI.APIKey = ""
	srv := New(cfg)

	rec := postMessages(t, srv, `{"model":"gpt-4.1","messages":[]}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestInvalidJSONBodyIs400(t *testing.T) {
	srv := New(testConfig(t))
	rec := postMessages(t, srv, `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpstreamErrorStatusForwarded(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	cfg := testConfig(t)
	cfg.OpenAI.BaseURL = upstream.URL + "/v1"
	srv := New(cfg)

	rec := postMessages(t, srv, `{"model":"gpt-4.1","messages":[{"role":"user","content":"hello"}]}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limited")
}

func TestHeaderOverridesCredentialsAndURL(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer header-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"resp_1","model":"gpt-4.1","output":[]}`))
	}))
	defer upstream.Close()

	cfg := testConfig(t)
	cfg.OpenAI.APIKey = ""
	srv := New(cfg)

	rec := postMessages(t, srv, `{"model":"gpt-4.1","messages":[{"role":"user","content":"hello"}]}`, map[string]string{
		"x-openai-api-key": "header-key",
		"x-openai-api-url": upstream.URL + "/v1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestModelMapResolutionAndExtrasMerge(t *testing.T) {
	var upstreamBody map[string]any
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &upstreamBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"resp_1","model":"gpt-5.2-codex","output":[]}`))
	}))
	defer upstream.Close()

	mapPath := filepath.Join(t.TempDir(), "model-map.yml")
	require.NoError(t, os.WriteFile(mapPath, []byte(`
model_map:
  "claude-*-4-5":
    model: gpt-5.2-codex
    reasoning:
      effort: low
  "*": gpt-4o-mini
`), 0o644))

	cfg := testConfig(t)
	cfg.OpenAI.BaseURL = upstream.URL + "/v1"
	cfg.ModelMapPath = mapPath
	srv := New(cfg)

	rec := postMessages(t, srv, `{"model":"claude-sonnet-4-5","messages":[{"role":"user","content":"hello"}]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "gpt-5.2-codex", upstreamBody["model"])
	reasoning := upstreamBody["reasoning"].(map[string]any)
	assert.Equal(t, "low", reasoning["effort"])
}

func TestHealthz(t *testing.T) {
	srv := New(testConfig(t))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
