// Package session owns the per-session orchestration of the critique pipeline:
// guard -> (normalizer -> extractor -> confidence gate) -> engine. A Session is
// created at session start, mutated only by its own methods, and discarded at
// session end; there is no cross-session state.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jonathan/menu-critic/internal/config"
	"github.com/jonathan/menu-critic/internal/critique"
	"github.com/jonathan/menu-critic/internal/groq"
	"github.com/jonathan/menu-critic/internal/guard"
	"github.com/jonathan/menu-critic/internal/imaging"
	"github.com/jonathan/menu-critic/internal/vision"
)

// Source labels where the menu text came from.
type Source string

// Supported input sources.
const (
	SourceText  Source = "text"
	SourceImage Source = "image"
)

// Request is one critique request, retained only to support a same-session
// retry. For image requests the vision metadata travels with it.
type Request struct {
	MenuText string        `validate:"required"`
	Mode     critique.Mode `validate:"required,oneof=fix roast"`
	Goal     critique.Goal `validate:"required,oneof=conversion aov experience"`
	Context  string
	Source   Source `validate:"required,oneof=text image"`

	VisionConfidence float64
	VisionNotes      string
	ImageMeta        *imaging.Meta
}

var validate = validator.New()

// Validate checks the request with struct tags.
func (r *Request) Validate() error {
	return validate.Struct(r)
}

// Outcome is a successful analysis: the validated critique, its pretty JSON
// rendering, the raw model output, and request metadata.
type Outcome struct {
	Result     *critique.Result
	ResultJSON string
	Raw        string
	Meta       *critique.Metadata
	Request    *Request
}

// Session holds the single interactive session's mutable state. One logical
// request is in flight at a time; the limiter enforces the cooldown window
// between consecutive analysis requests.
type Session struct {
	ID uuid.UUID

	cfg     *config.Config
	client  groq.Client
	engine  *critique.Engine
	limiter *rate.Limiter
	now     func() time.Time

	lastRequest    *Request
	lastResult     *critique.Result
	lastResultJSON string
	lastInvalidRaw string
	lastInvalidMsg string
}

// New creates a Session. A zero cooldown disables the limiter.
func New(cfg *config.Config, client groq.Client) *Session {
	limit := rate.Inf
	if cfg.Cooldown > 0 {
		limit = rate.Every(cfg.Cooldown)
	}
	return &Session{
		ID:      uuid.New(),
		cfg:     cfg,
		client:  client,
		engine:  critique.NewEngine(client, cfg.TextModel),
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// AnalyzeText runs the text path: clamp, guard, critique.
func (s *Session) AnalyzeText(ctx context.Context, menuText string, mode critique.Mode, goal critique.Goal, contextNote string) (*Outcome, error) {
	if err := s.prepare(); err != nil {
		return nil, err
	}

	text := guard.ClampTextTo(menuText, s.cfg.MaxTextChars)
	if text == "" {
		log.Info("analyze blocked: empty pasted text input")
		return nil, &ValidationError{Message: "please paste menu text before analyzing"}
	}
	if err := s.cfg.Guard.Validate(text, string(SourceText)); err != nil {
		return nil, err
	}

	req := &Request{
		MenuText: text,
		Mode:     mode,
		Goal:     goal,
		Context:  strings.TrimSpace(contextNote),
		Source:   SourceText,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.run(ctx, req)
}

// AnalyzeImage runs the image path: normalize, extract, confidence gate,
// guard on the extracted text, critique. The vision call and the critique
// call are strictly sequential; the second depends on the first's output.
func (s *Session) AnalyzeImage(ctx context.Context, imageData []byte, mode critique.Mode, goal critique.Goal, contextNote string) (*Outcome, error) {
	if err := s.prepare(); err != nil {
		return nil, err
	}

	opts := imaging.DefaultOptions()
	opts.MaxUploadBytes = s.cfg.MaxImageUploadBytes
	opts.TargetBytes = s.cfg.TargetImageBytes
	payload, meta, err := opts.Normalize(imageData)
	if err != nil {
		return nil, err
	}

	visionResult, err := vision.Extract(ctx, s.client, s.cfg.VisionModel, payload)
	if err != nil {
		return nil, err
	}

	extracted := guard.ClampTextTo(visionResult.MenuText, s.cfg.MaxTextChars)
	if err := s.gate(visionResult, extracted); err != nil {
		return nil, err
	}
	if err := s.cfg.Guard.Validate(extracted, string(SourceImage)); err != nil {
		return nil, err
	}

	req := &Request{
		MenuText:         extracted,
		Mode:             mode,
		Goal:             goal,
		Context:          strings.TrimSpace(contextNote),
		Source:           SourceImage,
		VisionConfidence: visionResult.Confidence,
		VisionNotes:      visionResult.Notes,
		ImageMeta:        meta,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"extracted_chars": len(extracted),
		"confidence":      visionResult.Confidence,
	}).Info("image-based critique request ready")
	return s.run(ctx, req)
}

// Retry re-runs the last request without re-entering input. The cooldown
// still applies; retries are always user-initiated.
func (s *Session) Retry(ctx context.Context) (*Outcome, error) {
	if s.lastRequest == nil {
		return nil, &ValidationError{Message: "no previous request to retry"}
	}
	if err := s.prepare(); err != nil {
		return nil, err
	}
	log.WithField("source", string(s.lastRequest.Source)).Info("retrying previous critique request")
	return s.run(ctx, s.lastRequest)
}

// LastResult returns the most recent validated critique and its JSON text.
func (s *Session) LastResult() (*critique.Result, string) {
	return s.lastResult, s.lastResultJSON
}

// LastInvalid returns the raw output and message from the most recent
// invalid-JSON failure, empty when the last run succeeded.
func (s *Session) LastInvalid() (raw, message string) {
	return s.lastInvalidRaw, s.lastInvalidMsg
}

// LastRequest returns the retained request, nil when none was made.
func (s *Session) LastRequest() *Request {
	return s.lastRequest
}

// prepare validates the credential and consumes a cooldown slot. Matching the
// interactive flow, the slot is consumed even if the input is later rejected.
func (s *Session) prepare() error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	now := s.now()
	reservation := s.limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		wait := delay.Truncate(time.Second)
		if wait < delay {
			wait += time.Second
		}
		log.WithField("wait_seconds", int(wait.Seconds())).Info("session cooldown triggered")
		return &CooldownError{Wait: wait}
	}
	return nil
}

// gate applies the caller-side confidence threshold on vision results.
func (s *Session) gate(res *vision.Result, extracted string) error {
	if res.Confidence >= s.cfg.MinVisionConfidence &&
		len(strings.TrimSpace(extracted)) >= s.cfg.MinExtractedChars {
		return nil
	}
	log.WithFields(log.Fields{
		"confidence": res.Confidence,
		"chars":      len(strings.TrimSpace(extracted)),
		"notes":      res.Notes,
	}).Warn("vision extraction below threshold")

	msg := "could not read the menu image reliably; please try a clearer photo or paste the menu text instead"
	if res.Notes != "" {
		msg += " (notes: " + res.Notes + ")"
	}
	return &vision.ExtractionError{Message: msg, RawOutput: res.Raw}
}

// run executes the critique call and updates session state. On an invalid
// JSON response the raw payload is persisted so the user can retry without
// re-entering input.
func (s *Session) run(ctx context.Context, req *Request) (*Outcome, error) {
	s.lastRequest = req
	s.lastInvalidRaw = ""
	s.lastInvalidMsg = ""

	result, raw, meta, err := s.engine.Analyze(ctx, req.MenuText, req.Mode, req.Goal, req.Context)
	if err != nil {
		var invalidErr *critique.InvalidJSONError
		if errors.As(err, &invalidErr) {
			s.lastInvalidRaw = invalidErr.RawOutput
			s.lastInvalidMsg = invalidErr.Error()
		}
		return nil, err
	}

	resultJSON, err := critique.PrettyJSON(result)
	if err != nil {
		return nil, err
	}
	s.lastResult = result
	s.lastResultJSON = resultJSON
	log.Info("analysis succeeded and result saved to session")

	return &Outcome{
		Result:     result,
		ResultJSON: resultJSON,
		Raw:        raw,
		Meta:       meta,
		Request:    req,
	}, nil
}
