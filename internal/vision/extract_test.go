package vision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/menu-critic/internal/groq"
)

// fakeClient returns a canned response or error and records the request.
type fakeClient struct {
	resp *groq.ChatResponse
	err  error
	got  groq.ChatRequest
}

func (f *fakeClient) Chat(_ context.Context, req groq.ChatRequest) (*groq.ChatResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func chatResponse(content string) *groq.ChatResponse {
	return &groq.ChatResponse{
		Choices: []groq.Choice{{Message: groq.ChoiceMessage{Content: content}}},
		Usage:   &groq.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func TestExtract_Success(t *testing.T) {
	client := &fakeClient{resp: chatResponse(
		`{"menu_text": "Caesar Salad 8.99\nPizza 12.50", "confidence": 0.92, "notes": "clear photo"}`)}

	result, err := Extract(context.Background(), client, "vision-model", "data:image/jpeg;base64,AA")
	require.NoError(t, err)

	assert.Equal(t, "Caesar Salad 8.99\nPizza 12.50", result.MenuText)
	assert.InDelta(t, 0.92, result.Confidence, 1e-9)
	assert.Equal(t, "clear photo", result.Notes)
	assert.Equal(t, "vision-model", result.Model)
	require.NotNil(t, result.Usage)
	assert.Equal(t, 15, result.Usage.TotalTokens)
}

func TestExtract_RequestShape(t *testing.T) {
	client := &fakeClient{resp: chatResponse(`{"menu_text": "x", "confidence": 1, "notes": ""}`)}

	_, err := Extract(context.Background(), client, "vision-model", "data:image/jpeg;base64,AA")
	require.NoError(t, err)

	assert.Equal(t, "vision-model", client.got.Model)
	assert.Zero(t, client.got.Temperature)
	require.NotNil(t, client.got.ResponseFormat)
	assert.Equal(t, "json_object", client.got.ResponseFormat.Type)
	require.Len(t, client.got.Messages, 2)
	assert.Equal(t, "system", client.got.Messages[0].Role)
	assert.Equal(t, "user", client.got.Messages[1].Role)

	parts, ok := client.got.Messages[1].Content.([]groq.ContentPart)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "image_url", parts[1].Type)
}

func TestExtract_ConfidenceCoercion(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected float64
	}{
		{
			name:     "string confidence",
			body:     `{"menu_text": "x", "confidence": "0.8", "notes": ""}`,
			expected: 0.8,
		},
		{
			name:     "missing confidence",
			body:     `{"menu_text": "x", "notes": ""}`,
			expected: 0,
		},
		{
			name:     "garbage confidence",
			body:     `{"menu_text": "x", "confidence": "very sure", "notes": ""}`,
			expected: 0,
		},
		{
			name:     "above one clamps",
			body:     `{"menu_text": "x", "confidence": 1.7, "notes": ""}`,
			expected: 1,
		},
		{
			name:     "negative clamps",
			body:     `{"menu_text": "x", "confidence": -0.3, "notes": ""}`,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{resp: chatResponse(tt.body)}
			result, err := Extract(context.Background(), client, "m", "data:image/jpeg;base64,AA")
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, result.Confidence, 1e-9)
		})
	}
}

func TestExtract_TrimsFields(t *testing.T) {
	client := &fakeClient{resp: chatResponse(
		`{"menu_text": "  Burger 5.00  ", "confidence": 0.9, "notes": "  ok  "}`)}

	result, err := Extract(context.Background(), client, "m", "data:image/jpeg;base64,AA")
	require.NoError(t, err)
	assert.Equal(t, "Burger 5.00", result.MenuText)
	assert.Equal(t, "ok", result.Notes)
}

func TestExtract_InvalidJSON(t *testing.T) {
	client := &fakeClient{resp: chatResponse("Sure! Here is the menu text you asked for.")}

	_, err := Extract(context.Background(), client, "m", "data:image/jpeg;base64,AA")
	require.Error(t, err)

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, "Sure! Here is the menu text you asked for.", extractionErr.RawOutput)
}

func TestExtract_RateLimitPassesThrough(t *testing.T) {
	client := &fakeClient{err: &groq.RateLimitError{Message: "slow down"}}

	_, err := Extract(context.Background(), client, "m", "data:image/jpeg;base64,AA")
	require.Error(t, err)
	assert.True(t, groq.IsRateLimit(err))

	var extractionErr *ExtractionError
	assert.NotErrorAs(t, err, &extractionErr)
}

func TestExtract_TransportError(t *testing.T) {
	client := &fakeClient{err: &groq.APICallError{Message: "boom"}}

	_, err := Extract(context.Background(), client, "m", "data:image/jpeg;base64,AA")
	require.Error(t, err)

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.ErrorContains(t, extractionErr.Unwrap(), "boom")
}
