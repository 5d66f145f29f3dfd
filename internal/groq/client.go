// Package groq provides a minimal client for the Groq-hosted OpenAI-compatible
// chat completions API. The rest of the system depends only on the Client
// interface, never on the transport.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
)

const defaultTimeout = 120 * time.Second

// Client is the narrow provider abstraction the pipeline consumes.
type Client interface {
	// Chat issues a single blocking chat completion request.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Message is one chat message. Content is either a plain string or a slice of
// ContentPart values (required for image requests).
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one element of a multi-part user message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries an embeddable image payload (a base64 data URI).
type ImageURL struct {
	URL string `json:"url"`
}

// TextMessage builds a plain text message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}

// ImageMessage builds a user message pairing an instruction with an image.
func ImageMessage(text, imageDataURI string) Message {
	return Message{
		Role: "user",
		Content: []ContentPart{
			{Type: "text", Text: text},
			{Type: "image_url", ImageURL: &ImageURL{URL: imageDataURI}},
		},
	}
}

// ResponseFormat selects the provider's decoding mode.
type ResponseFormat struct {
	Type       string      `json:"type"` // "json_object" or "json_schema"
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

// JSONSchema is the schema payload for schema-constrained decoding.
type JSONSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

// JSONObjectFormat requests loose JSON-object decoding.
func JSONObjectFormat() *ResponseFormat {
	return &ResponseFormat{Type: "json_object"}
}

// JSONSchemaFormat requests strict schema-constrained decoding.
func JSONSchemaFormat(name string, schema json.RawMessage) *ResponseFormat {
	return &ResponseFormat{
		Type:       "json_schema",
		JSONSchema: &JSONSchema{Name: name, Schema: schema, Strict: true},
	}
}

// ChatRequest is the wire request. Temperature is always sent; zero is a
// meaningful value for deterministic extraction.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Usage reports token consumption for a completed request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChoiceMessage is the assistant message inside a completion choice.
type ChoiceMessage struct {
	Content string `json:"content"`
}

// Choice is one completion choice.
type Choice struct {
	Message ChoiceMessage `json:"message"`
}

// ChatResponse is the wire response.
type ChatResponse struct {
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage"`
}

// ContentText returns the trimmed content of the first choice.
func (r *ChatResponse) ContentText() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Choices[0].Message.Content)
}

// HTTPClient implements Client against a chat completions endpoint.
type HTTPClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates an HTTPClient. baseURL should not end with a slash; an
// empty baseURL uses the Groq production endpoint.
func NewClient(apiKey, baseURL string) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	return &HTTPClient{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// Chat posts the request and decodes the response. Failures are classified:
// throttling becomes a RateLimitError, everything else an APICallError.
func (c *HTTPClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &APICallError{Message: "failed to marshal request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &APICallError{Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	log.WithFields(log.Fields{"model": req.Model, "bytes": len(payload)}).
		Debug("sending chat completion request")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if isRateLimitMessage(err.Error()) {
			return nil, &RateLimitError{Message: err.Error()}
		}
		return nil, &APICallError{Message: "failed to send request", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APICallError{Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("API error (status %d): %s", resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusTooManyRequests || isRateLimitMessage(string(body)) {
			log.WithField("status", resp.StatusCode).Warn("provider signaled throttling")
			return nil, &RateLimitError{Message: msg}
		}
		return nil, &APICallError{StatusCode: resp.StatusCode, Message: msg}
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, &APICallError{Message: "failed to parse response", Cause: err}
	}
	if len(chatResp.Choices) == 0 {
		return nil, &APICallError{Message: "no choices in response"}
	}
	return &chatResp, nil
}
