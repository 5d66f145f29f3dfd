// Package critique turns menu text into a strictly-shaped critique via a
// two-tier request against the text model: schema-constrained decoding first,
// loose JSON-object decoding as the fallback.
package critique

import (
	"context"
	"encoding/json"

	"github.com/apex/log"

	"github.com/jonathan/menu-critic/internal/groq"
)

// Decoding temperatures per mode. Roast runs hot: higher creative variance is
// desirable for humor and acceptable for a non-numeric creative task.
const (
	fixTemperature   = 0.35
	roastTemperature = 1.0
)

const schemaName = "menu_critic_output"

// Engine issues critique requests against a fixed text model.
type Engine struct {
	client groq.Client
	model  string
}

// NewEngine creates an Engine bound to a client and model identifier.
func NewEngine(client groq.Client, model string) *Engine {
	return &Engine{client: client, model: model}
}

// Analyze runs the two-tier request strategy and validates the response shape.
//
// Tier 1 asks for strict schema-constrained decoding. If that fails for any
// non-rate-limit reason (some providers reject the mode outright), tier 2
// retries the identical prompt with loose json_object decoding. A rate-limit
// failure at either tier aborts immediately without further fallback. The
// parsed structure is then re-validated against the full shape contract; any
// violation is an InvalidJSONError that still carries the raw output.
func (e *Engine) Analyze(ctx context.Context, menuText string, mode Mode, goal Goal, contextNote string) (*Result, string, *Metadata, error) {
	log.WithFields(log.Fields{
		"mode":       string(mode),
		"goal":       string(goal),
		"text_chars": len(menuText),
		"model":      e.model,
	}).Info("starting menu analysis")

	temperature := fixTemperature
	if mode == ModeRoast {
		temperature = roastTemperature
	}
	req := groq.ChatRequest{
		Model:       e.model,
		Temperature: temperature,
		Messages: []groq.Message{
			groq.TextMessage("system", systemPrompt()),
			groq.TextMessage("user", userPrompt(menuText, mode, goal, contextNote)),
		},
	}

	responseFormat := "json_schema"
	req.ResponseFormat = groq.JSONSchemaFormat(schemaName, json.RawMessage(Schema))
	resp, err := e.client.Chat(ctx, req)
	if err != nil {
		if groq.IsRateLimit(err) {
			log.WithError(err).Warn("menu analysis hit rate limit")
			return nil, "", nil, err
		}
		log.WithError(err).Warn("json_schema response format failed, falling back to json_object")

		responseFormat = "json_object"
		req.ResponseFormat = groq.JSONObjectFormat()
		resp, err = e.client.Chat(ctx, req)
		if err != nil {
			if groq.IsRateLimit(err) {
				log.WithError(err).Warn("fallback menu analysis hit rate limit")
			}
			return nil, "", nil, err
		}
	}

	raw := resp.ContentText()
	if err := validateShape(raw); err != nil {
		log.WithField("raw_len", len(raw)).Warn("menu analysis returned invalid or misshapen JSON")
		return nil, raw, nil, err
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		// validateShape guarantees this cannot happen for schema-valid JSON.
		return nil, raw, nil, &InvalidJSONError{RawOutput: raw, Cause: err}
	}

	log.WithFields(log.Fields{
		"top_changes":      len(result.Top5Changes),
		"rewrite_examples": len(result.RewriteExamples),
		"ab_tests":         len(result.ABTests),
	}).Info("menu analysis complete")

	meta := &Metadata{
		Model:          e.model,
		ResponseFormat: responseFormat,
		Usage:          resp.Usage,
		RawOutputChars: len(raw),
	}
	return &result, raw, meta, nil
}
