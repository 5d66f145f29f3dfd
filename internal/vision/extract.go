// Package vision turns a normalized menu image payload into menu text plus a
// confidence score via a single vision-model request.
package vision

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/apex/log"

	"github.com/jonathan/menu-critic/internal/groq"
)

const systemPrompt = "You extract restaurant menu text from images. Output ONLY valid JSON in English. " +
	"Do not add markdown fences."

const userPrompt = "Read the menu image and extract the visible menu text in English.\n" +
	"Return JSON with keys: menu_text (string), confidence (number 0 to 1), notes (string).\n" +
	"If the image is blurry, obstructed, or not a menu, set confidence below 0.45 and explain in notes.\n" +
	"Preserve line breaks where possible."

// Result is the immutable outcome of one extraction request. Confidence is
// always in [0,1] regardless of what the model returned.
type Result struct {
	MenuText   string
	Confidence float64
	Notes      string
	Raw        string
	Usage      *groq.Usage
	Model      string
}

// Extract issues one deterministic (temperature 0) vision request against the
// given model. Rate-limit failures pass through untouched so callers can
// short-circuit; other transport failures and non-JSON bodies become
// ExtractionErrors, the latter carrying the raw text for diagnostics.
func Extract(ctx context.Context, client groq.Client, model, imageDataURI string) (*Result, error) {
	log.WithField("model", model).Info("sending vision extraction request")

	resp, err := client.Chat(ctx, groq.ChatRequest{
		Model:          model,
		Temperature:    0,
		ResponseFormat: groq.JSONObjectFormat(),
		Messages: []groq.Message{
			groq.TextMessage("system", systemPrompt),
			groq.ImageMessage(userPrompt, imageDataURI),
		},
	})
	if err != nil {
		if groq.IsRateLimit(err) {
			log.WithError(err).Warn("vision extraction hit rate limit")
			return nil, err
		}
		return nil, &ExtractionError{Message: "vision request failed", Cause: err}
	}

	raw := resp.ContentText()
	var payload struct {
		MenuText   string `json:"menu_text"`
		Confidence any    `json:"confidence"`
		Notes      string `json:"notes"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		log.WithField("raw_len", len(raw)).Warn("vision extraction returned invalid JSON")
		return nil, &ExtractionError{
			Message:   "vision response was not valid JSON",
			RawOutput: raw,
			Cause:     err,
		}
	}

	confidence := clampConfidence(coerceConfidence(payload.Confidence))
	menuText := strings.TrimSpace(payload.MenuText)
	log.WithFields(log.Fields{
		"confidence":      confidence,
		"menu_text_chars": len(menuText),
	}).Info("vision extraction complete")

	return &Result{
		MenuText:   menuText,
		Confidence: confidence,
		Notes:      strings.TrimSpace(payload.Notes),
		Raw:        raw,
		Usage:      resp.Usage,
		Model:      model,
	}, nil
}

// coerceConfidence accepts the number, string, or garbage the model actually
// returns and maps anything unusable to 0.
func coerceConfidence(v any) float64 {
	switch c := v.(type) {
	case float64:
		return c
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(c), 64); err == nil {
			return f
		}
	}
	return 0
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
