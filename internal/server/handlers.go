package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jonathan/menu-critic/internal/config"
	"github.com/jonathan/menu-critic/internal/critique"
	"github.com/jonathan/menu-critic/internal/groq"
	"github.com/jonathan/menu-critic/internal/guard"
	"github.com/jonathan/menu-critic/internal/imaging"
	"github.com/jonathan/menu-critic/internal/session"
	"github.com/jonathan/menu-critic/internal/vision"
)

type analyzeRequest struct {
	MenuText string `json:"menu_text"`
	Mode     string `json:"mode"`
	Goal     string `json:"goal"`
	Context  string `json:"context"`
}

type analyzeResponse struct {
	Result  *critique.Result   `json:"result"`
	Meta    *critique.Metadata `json:"meta"`
	Request *requestInfo       `json:"request"`
}

type requestInfo struct {
	Source           session.Source `json:"source"`
	Mode             critique.Mode  `json:"mode"`
	Goal             critique.Goal  `json:"goal"`
	VisionConfidence float64        `json:"vision_confidence,omitempty"`
	VisionNotes      string         `json:"vision_notes,omitempty"`
	ImageMeta        *imaging.Meta  `json:"image_meta,omitempty"`
}

// handleAnalyze runs the text path for the caller's session.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sess := s.sessionFor(w, r)
	outcome, err := sess.AnalyzeText(r.Context(), req.MenuText,
		critique.ParseMode(req.Mode), critique.ParseGoal(req.Goal), req.Context)
	if err != nil {
		s.pipelineError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, outcomeResponse(outcome))
}

// handleAnalyzeImage runs the image path. The upload arrives as multipart
// form data under the "image" field.
func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxImageUploadBytes); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "missing image upload")
		return
	}
	defer file.Close()

	// The normalizer enforces the real ceiling; the extra byte just lets it
	// distinguish "at the limit" from "over it".
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxImageUploadBytes+1))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "could not read image upload")
		return
	}

	sess := s.sessionFor(w, r)
	outcome, err := sess.AnalyzeImage(r.Context(), data,
		critique.ParseMode(r.FormValue("mode")), critique.ParseGoal(r.FormValue("goal")),
		r.FormValue("context"))
	if err != nil {
		s.pipelineError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, outcomeResponse(outcome))
}

// handleRetry re-runs the session's last request.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	outcome, err := sess.Retry(r.Context())
	if err != nil {
		s.pipelineError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, outcomeResponse(outcome))
}

// handleResult returns the session's last successful critique.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	result, resultJSON := sess.LastResult()
	if result == nil {
		s.errorResponse(w, http.StatusNotFound, "no result for this session yet")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(resultJSON))
}

func outcomeResponse(outcome *session.Outcome) *analyzeResponse {
	info := &requestInfo{
		Source: outcome.Request.Source,
		Mode:   outcome.Request.Mode,
		Goal:   outcome.Request.Goal,
	}
	if outcome.Request.Source == session.SourceImage {
		info.VisionConfidence = outcome.Request.VisionConfidence
		info.VisionNotes = outcome.Request.VisionNotes
		info.ImageMeta = outcome.Request.ImageMeta
	}
	return &analyzeResponse{Result: outcome.Result, Meta: outcome.Meta, Request: info}
}

// pipelineError maps the error taxonomy onto HTTP status codes. Invalid-JSON
// failures carry the raw model output so clients can display it and offer a
// retry.
func (s *Server) pipelineError(w http.ResponseWriter, err error) {
	var (
		suspiciousErr  *guard.SuspiciousInputError
		inputErr       *session.ValidationError
		imageErr       *imaging.ValidationError
		cooldownErr    *session.CooldownError
		setupErr       *config.SetupError
		rateLimitErr   *groq.RateLimitError
		extractionErr  *vision.ExtractionError
		invalidJSONErr *critique.InvalidJSONError
	)
	switch {
	case errors.As(err, &suspiciousErr), errors.As(err, &inputErr), errors.As(err, &imageErr):
		s.errorResponse(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &cooldownErr):
		s.jsonResponse(w, http.StatusTooManyRequests, map[string]any{
			"error":        err.Error(),
			"wait_seconds": int(cooldownErr.Wait.Seconds()),
		})
	case errors.As(err, &setupErr):
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &rateLimitErr):
		s.errorResponse(w, http.StatusServiceUnavailable, "provider is throttling requests; try again in a minute")
	case errors.As(err, &extractionErr):
		s.errorResponse(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &invalidJSONErr):
		s.jsonResponse(w, http.StatusBadGateway, map[string]any{
			"error":      err.Error(),
			"raw_output": invalidJSONErr.RawOutput,
			"retryable":  true,
		})
	default:
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
