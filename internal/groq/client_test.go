package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func successBody(content string) string {
	body, _ := json.Marshal(map[string]any{
		"model": "test-model",
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
		"usage": map[string]any{
			"prompt_tokens":     12,
			"completion_tokens": 34,
			"total_tokens":      46,
		},
	})
	return string(body)
}

func TestChat_Success(t *testing.T) {
	var gotReq ChatRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(successBody("  hello world  ")))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL)
	resp, err := client.Chat(context.Background(), ChatRequest{
		Model:       "test-model",
		Temperature: 0.35,
		Messages:    []Message{TextMessage("user", "hi")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model)
	assert.InDelta(t, 0.35, gotReq.Temperature, 1e-9)
	assert.Equal(t, "hello world", resp.ContentText())
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, 34, resp.Usage.CompletionTokens)
}

func TestChat_TemperatureZeroIsSent(t *testing.T) {
	var rawBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rawBody))
		_, _ = w.Write([]byte(successBody("ok")))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL)
	_, err := client.Chat(context.Background(), ChatRequest{
		Model:    "test-model",
		Messages: []Message{TextMessage("user", "hi")},
	})
	require.NoError(t, err)

	// Zero is deterministic decoding, not an omitted field.
	val, ok := rawBody["temperature"]
	require.True(t, ok)
	assert.Equal(t, float64(0), val)
}

func TestChat_TooManyRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down"}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL)
	_, err := client.Chat(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.True(t, IsRateLimit(err))
}

func TestChat_RateLimitMessageInBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached for model"}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL)
	_, err := client.Chat(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.True(t, IsRateLimit(err))
}

func TestChat_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "boom"}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL)
	_, err := client.Chat(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.False(t, IsRateLimit(err))

	var apiErr *APICallError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "boom")
}

func TestChat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"model": "m", "choices": []}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL)
	_, err := client.Chat(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestChat_UnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	client := NewClient("test-key", srv.URL)
	_, err := client.Chat(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	var apiErr *APICallError
	assert.ErrorAs(t, err, &apiErr)
}

func TestIsRateLimitMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "rate limit phrase", input: "Rate limit reached", expected: true},
		{name: "status code", input: "got 429 from upstream", expected: true},
		{name: "too many requests", input: "Too Many Requests", expected: true},
		{name: "unrelated", input: "connection refused", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRateLimitMessage(tt.input))
		})
	}
}

func TestImageMessage(t *testing.T) {
	msg := ImageMessage("read this", "data:image/jpeg;base64,AAAA")
	assert.Equal(t, "user", msg.Role)

	parts, ok := msg.Content.([]ContentPart)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "read this", parts[0].Text)
	assert.Equal(t, "image_url", parts[1].Type)
	require.NotNil(t, parts[1].ImageURL)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", parts[1].ImageURL.URL)
}

func TestResponseFormatSerialization(t *testing.T) {
	schema := json.RawMessage(`{"type": "object"}`)
	body, err := json.Marshal(ChatRequest{
		Model:          "m",
		ResponseFormat: JSONSchemaFormat("shape", schema),
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	rf, ok := decoded["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", rf["type"])

	js, ok := rf["json_schema"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "shape", js["name"])
	assert.Equal(t, true, js["strict"])
}
