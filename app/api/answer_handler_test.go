package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docquery/pipeline"
	"docquery/session"
	"docquery/types"
)

type fakeLoader struct {
	docs map[string]*types.Document
}

func (f *fakeLoader) Load(_ context.Context, source string, _ types.DocumentFormat) (*types.Document, error) {
	doc, ok := f.docs[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrSourceUnavailable, source)
	}
	return doc, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	var h uint32
	for _, c := range text {
		h = h*31 + uint32(c)
	}
	angle := float64(h%360) / 360
	return []float32{float32(1 - angle), float32(angle)}, nil
}

type fakeSynth struct{}

func (fakeSynth) Answer(_ context.Context, question string, results []types.RetrievalResult, _ bool) types.Answer {
	return types.Answer{
		Question:        question,
		Answer:          "answer to " + question,
		ConfidenceScore: 0.9,
		QueryType:       "coverage",
		SourceCitations: []string{},
		ProcessingTime:  3,
		ContextChunks:   len(results),
		TokenUsage:      types.TokenUsage{Prompt: 10, Completion: 5},
	}
}

func newTestApp(t *testing.T) (*fiber.App, *session.Registry) {
	t.Helper()

	ld := &fakeLoader{docs: map[string]*types.Document{
		"policy.pdf": {
			ID:     uuid.New(),
			Source: "policy.pdf",
			Format: types.FormatPDF,
			Pages:  []types.Page{{Number: 1, Text: strings.Repeat("policy text ", 120)}},
		},
	}}
	pipe := pipeline.New(ld, fakeEmbedder{}, fakeSynth{}, nil, 4, time.Second, zap.NewNop())
	sessions := session.NewRegistry()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	answerHandler := NewAnswerHandler(pipe, sessions, zap.NewNop())
	sessionHandler := NewSessionHandler(sessions)
	checkHandler := NewCheckHandler(sessions)

	app.Get("/api/v1/health", checkHandler.HandleHealth)
	app.Get("/api/v1/metrics", checkHandler.HandleMetrics)
	app.Post("/api/v1/answer", answerHandler.HandleAnswer)
	app.Get("/api/v1/sessions", sessionHandler.HandleList)
	app.Get("/api/v1/sessions/:id", sessionHandler.HandleGet)
	app.Delete("/api/v1/sessions/:id", sessionHandler.HandleDelete)

	return app, sessions
}

func postJSON(t *testing.T, app *fiber.App, path string, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHandleAnswer_Success(t *testing.T) {
	app, sessions := newTestApp(t)

	resp := postJSON(t, app, "/api/v1/answer", `{
		"documents": ["policy.pdf"],
		"questions": ["Is knee surgery covered?", "What is the waiting period?"],
		"session_id": "sess-api-1"
	}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody[types.QueryResponse](t, resp)
	assert.Equal(t, "sess-api-1", body.SessionID)
	assert.Equal(t, types.StatusSuccess, body.Status)
	require.Len(t, body.Answers, 2)
	assert.Equal(t, "Is knee surgery covered?", body.Answers[0].Question)
	assert.Equal(t, "What is the waiting period?", body.Answers[1].Question)
	assert.Equal(t, 1, body.DocumentStatistics.DocumentCount)
	assert.Greater(t, body.DocumentStatistics.ChunkCount, 0)
	assert.NotEmpty(t, body.Timestamp)

	s, ok := sessions.Get("sess-api-1")
	require.True(t, ok)
	assert.Equal(t, session.StatusCompleted, s.Status)
}

func TestHandleAnswer_InvalidJSON(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/api/v1/answer", `{"documents": [`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "invalid JSON request", body["error"])
}

func TestHandleAnswer_MissingDocuments(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/api/v1/answer", `{"questions": ["q"]}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	body := decodeBody[ValidationError](t, resp)
	assert.Contains(t, body.Errors, "Documents")
}

func TestHandleAnswer_UnavailableSource(t *testing.T) {
	app, sessions := newTestApp(t)

	resp := postJSON(t, app, "/api/v1/answer", `{
		"documents": ["missing.pdf"],
		"questions": ["q"],
		"session_id": "sess-api-2"
	}`)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	s, ok := sessions.Get("sess-api-2")
	require.True(t, ok)
	assert.Equal(t, session.StatusError, s.Status)
	assert.NotEmpty(t, s.Error)
}

func TestHandleAnswer_InvalidChunkOptions(t *testing.T) {
	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/api/v1/answer", `{
		"documents": ["policy.pdf"],
		"questions": ["q"],
		"processing_options": {"chunk_size": 50}
	}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	body := decodeBody[ValidationError](t, resp)
	assert.Contains(t, body.Errors, "ChunkSize")
}

func TestSessionEndpoints(t *testing.T) {
	app, sessions := newTestApp(t)
	sessions.Create("known", 2)

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/sessions", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := decodeBody[map[string]any](t, resp)
	assert.Equal(t, float64(1), list["active_sessions"])

	req = httptest.NewRequest(fiber.MethodGet, "/api/v1/sessions/known", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/api/v1/sessions/unknown", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodDelete, "/api/v1/sessions/known", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, ok := sessions.Get("known")
	assert.False(t, ok)
}

func TestHealthAndMetrics(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/health", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	health := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "healthy", health["status"])

	req = httptest.NewRequest(fiber.MethodGet, "/api/v1/metrics", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	metrics := decodeBody[session.Metrics](t, resp)
	assert.GreaterOrEqual(t, metrics.UptimeSeconds, 0.0)
}
