package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicClient_GenerateText(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"content": [{"type": "text", "text": "  Conversions are up.  "}],
			"usage": {"input_tokens": 120, "output_tokens": 9}
		}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(AnthropicConfig{APIKey: "test-key", Model: "claude-3-haiku-20240307", Endpoint: srv.URL})
	resp, err := c.GenerateText(context.Background(), UserPrompt("be brief", "summarize", 0))
	require.NoError(t, err)

	assert.Equal(t, "Conversions are up.", resp.Text)
	assert.Equal(t, Usage{InputTokens: 120, OutputTokens: 9}, resp.Usage)
	assert.Equal(t, "claude-3-haiku-20240307", got.Model)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	assert.Equal(t, "be brief", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestAnthropicClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/overloaded":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"overloaded"}`))
		case "/empty":
			_, _ = w.Write([]byte(`{"content": []}`))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"content": [{"type":"text","text":"late"}]}`))
		}
	}))
	defer srv.Close()

	req := UserPrompt("", "hello", 50)

	c := NewAnthropicClient(AnthropicConfig{Endpoint: srv.URL + "/overloaded"})
	_, err := c.GenerateText(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")

	c = NewAnthropicClient(AnthropicConfig{Endpoint: srv.URL + "/empty"})
	_, err = c.GenerateText(context.Background(), req)
	assert.EqualError(t, err, "no content in response")

	c = NewAnthropicClient(AnthropicConfig{Endpoint: srv.URL + "/slow"})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.GenerateText(ctx, req)
	assert.Error(t, err)

	_, err = c.GenerateText(context.Background(), TextGenerationRequest{})
	assert.Error(t, err)
}
