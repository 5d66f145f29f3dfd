package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/menu-critic/internal/config"
	"github.com/jonathan/menu-critic/internal/groq"
)

const menuText = "Caesar Salad 8.99\nMargherita Pizza 12.50\nGrilled Chicken 14.00"

// scriptedClient replays responses/errors in order.
type scriptedClient struct {
	responses []*groq.ChatResponse
	errs      []error
	calls     int
}

func (s *scriptedClient) Chat(_ context.Context, _ groq.ChatRequest) (*groq.ChatResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.responses[i], nil
}

func chatResponse(content string) *groq.ChatResponse {
	return &groq.ChatResponse{
		Choices: []groq.Choice{{Message: groq.ChoiceMessage{Content: content}}},
	}
}

func validCritiqueJSON(t *testing.T) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"scores": map[string]any{
			"clarity":            70,
			"pricing_psychology": 60,
			"upsell_potential":   65,
			"menu_structure":     75,
			"dietary_signals":    30,
		},
		"top_5_changes": []any{"Drop trailing zeros from prices"},
		"revenue_levers": map[string]any{
			"conversion": []any{"Lead with the signature pizza"},
			"aov":        []any{"Bundle salad and drink"},
			"margin":     []any{"Promote the chicken entree"},
		},
		"rewrite_examples": []any{},
		"ab_tests":         []any{},
		"red_flags":        []any{"No dietary labels"},
	})
	require.NoError(t, err)
	return string(body)
}

func testServer(client groq.Client) *Server {
	cfg := config.Default()
	cfg.APIKey = "test-key"
	cfg.Cooldown = 0
	return New(cfg, client, 0)
}

func analyzeBody(t *testing.T, text string) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"menu_text": text,
		"mode":      "fix",
		"goal":      "conversion",
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestHandleHealth(t *testing.T) {
	srv := testServer(&scriptedClient{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestHandleAnalyze_Success(t *testing.T) {
	srv := testServer(&scriptedClient{responses: []*groq.ChatResponse{
		chatResponse(validCritiqueJSON(t)),
	}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", analyzeBody(t, menuText))
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.Equal(t, 70, resp.Result.Scores.Clarity)
	require.NotNil(t, resp.Request)
	assert.Equal(t, "text", string(resp.Request.Source))

	// A session cookie is issued on first contact.
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionCookie, cookies[0].Name)
}

func TestHandleAnalyze_BadBody(t *testing.T) {
	srv := testServer(&scriptedClient{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAnalyze_SuspiciousInput(t *testing.T) {
	srv := testServer(&scriptedClient{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze",
		analyzeBody(t, "dfdsfsdg qwrtpsdfgh zxcvbnmsdf"))
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "keyboard warm-up")
}

func TestHandleAnalyze_Cooldown(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = "test-key"
	srv := New(cfg, &scriptedClient{responses: []*groq.ChatResponse{
		chatResponse(validCritiqueJSON(t)),
	}}, 0)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", analyzeBody(t, menuText))
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := rec.Result().Cookies()[0]

	second := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", analyzeBody(t, menuText))
	second.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, second)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "wait_seconds")
}

func TestHandleAnalyze_RateLimited(t *testing.T) {
	srv := testServer(&scriptedClient{errs: []error{
		&groq.RateLimitError{Message: "throttled"},
	}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", analyzeBody(t, menuText))
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleAnalyze_InvalidModelJSON(t *testing.T) {
	srv := testServer(&scriptedClient{responses: []*groq.ChatResponse{
		chatResponse(`{"scores": "nope"}`),
	}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", analyzeBody(t, menuText))
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, `{"scores": "nope"}`, resp["raw_output"])
	assert.Equal(t, true, resp["retryable"])
}

func TestHandleRetry_NoPreviousRequest(t *testing.T) {
	srv := testServer(&scriptedClient{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/retry", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no previous request")
}

func TestHandleRetry_AfterInvalidJSON(t *testing.T) {
	srv := testServer(&scriptedClient{responses: []*groq.ChatResponse{
		chatResponse(`{"scores": "nope"}`),
		chatResponse(validCritiqueJSON(t)),
	}})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", analyzeBody(t, menuText))
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	cookie := rec.Result().Cookies()[0]

	retry := httptest.NewRequest(http.MethodPost, "/api/v1/retry", nil)
	retry.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, retry)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 70, resp.Result.Scores.Clarity)
}

func TestHandleResult(t *testing.T) {
	srv := testServer(&scriptedClient{responses: []*groq.ChatResponse{
		chatResponse(validCritiqueJSON(t)),
	}})

	// Nothing yet for a fresh session.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/result", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	cookie := rec.Result().Cookies()[0]

	analyze := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", analyzeBody(t, menuText))
	analyze.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, analyze)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := httptest.NewRequest(http.MethodGet, "/api/v1/result", nil)
	result.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, result)

	require.Equal(t, http.StatusOK, rec.Code)
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Contains(t, parsed, "scores")
}

func TestSessionFor_SeparateSessions(t *testing.T) {
	srv := testServer(&scriptedClient{})

	recA := httptest.NewRecorder()
	sessA := srv.sessionFor(recA, httptest.NewRequest(http.MethodGet, "/", nil))

	recB := httptest.NewRecorder()
	sessB := srv.sessionFor(recB, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotSame(t, sessA, sessB)

	// Presenting the issued cookie returns the same session.
	reqA := httptest.NewRequest(http.MethodGet, "/", nil)
	reqA.AddCookie(recA.Result().Cookies()[0])
	again := srv.sessionFor(httptest.NewRecorder(), reqA)
	assert.Same(t, sessA, again)
}
