package api

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docquery/store"
	"docquery/types"
)

type fakeStore struct {
	docs      []store.ArchivedDocument
	results   []types.RetrievalResult
	searchErr error

	lastVector []float32
	lastLimit  int
}

func (f *fakeStore) SaveDocument(context.Context, *types.Document) error { return nil }
func (f *fakeStore) SaveChunks(context.Context, []types.Chunk) error     { return nil }
func (f *fakeStore) Close()                                              {}

func (f *fakeStore) ListDocuments(context.Context) ([]store.ArchivedDocument, error) {
	return f.docs, nil
}

func (f *fakeStore) Search(_ context.Context, vector []float32, limit int) ([]types.RetrievalResult, error) {
	f.lastVector = vector
	f.lastLimit = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if limit < len(f.results) {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func newArchiveApp(fs *fakeStore) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	h := NewDocumentHandler(fs, fakeEmbedder{})
	app.Get("/api/v1/documents", h.HandleList)
	app.Post("/api/v1/documents/search", h.HandleSearch)
	return app
}

func TestHandleDocumentList(t *testing.T) {
	fs := &fakeStore{docs: []store.ArchivedDocument{
		{ID: uuid.New(), Title: "annual policy", Format: "pdf", PageCount: 12},
	}}
	app := newArchiveApp(fs)

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/documents", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, float64(1), body["document_count"])
}

func TestHandleArchiveSearch(t *testing.T) {
	fs := &fakeStore{results: []types.RetrievalResult{
		{Chunk: types.Chunk{ID: uuid.New(), Page: 3, Text: "waiting period is 90 days"}, Distance: 0.1, Rank: 1},
	}}
	app := newArchiveApp(fs)

	resp := postJSON(t, app, "/api/v1/documents/search", `{"query": "waiting period", "limit": 5}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "waiting period", body["query"])
	results := body["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, "waiting period is 90 days", first["content"])
	assert.Equal(t, float64(3), first["page"])

	assert.Equal(t, 5, fs.lastLimit)
	assert.NotEmpty(t, fs.lastVector)
}

func TestHandleArchiveSearch_DefaultsLimit(t *testing.T) {
	fs := &fakeStore{}
	app := newArchiveApp(fs)

	resp := postJSON(t, app, "/api/v1/documents/search", `{"query": "anything"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, types.DefaultTopK, fs.lastLimit)
}

func TestHandleArchiveSearch_EmptyQuery(t *testing.T) {
	app := newArchiveApp(&fakeStore{})

	resp := postJSON(t, app, "/api/v1/documents/search", `{"query": ""}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleArchiveSearch_StoreError(t *testing.T) {
	app := newArchiveApp(&fakeStore{searchErr: errors.New("connection refused")})

	resp := postJSON(t, app, "/api/v1/documents/search", `{"query": "q"}`)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
