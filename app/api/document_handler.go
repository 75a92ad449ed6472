package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docquery/model"
	"docquery/store"
	"docquery/types"
)

// DocumentHandler serves the pgvector archive; routes are only registered
// when an archive is configured.
type DocumentHandler struct {
	store    store.Storer
	embedder model.Embedder
}

func NewDocumentHandler(s store.Storer, embedder model.Embedder) *DocumentHandler {
	return &DocumentHandler{store: s, embedder: embedder}
}

func (h *DocumentHandler) HandleList(c *fiber.Ctx) error {
	docs, err := h.store.ListDocuments(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"document_count": len(docs),
		"documents":      docs,
	})
}

type archiveSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type archiveSearchResult struct {
	ChunkID  uuid.UUID `json:"chunk_id"`
	DocID    uuid.UUID `json:"doc_id"`
	Page     int       `json:"page"`
	Content  string    `json:"content"`
	Distance float64   `json:"distance"`
	Rank     int       `json:"rank"`
}

// HandleSearch runs a similarity query over every archived chunk, embedding
// the query text with the same embedder the pipeline uses.
func (h *DocumentHandler) HandleSearch(c *fiber.Ctx) error {
	var params archiveSearchRequest
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if params.Query == "" {
		return NewError(fiber.StatusBadRequest, "query must not be empty")
	}
	if params.Limit <= 0 {
		params.Limit = types.DefaultTopK
	}

	vector, err := h.embedder.Embed(c.UserContext(), params.Query)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrEmbeddingService, err)
	}

	results, err := h.store.Search(c.UserContext(), vector, params.Limit)
	if err != nil {
		return err
	}

	out := make([]archiveSearchResult, len(results))
	for i, r := range results {
		out[i] = archiveSearchResult{
			ChunkID:  r.Chunk.ID,
			DocID:    r.Chunk.DocID,
			Page:     r.Chunk.Page,
			Content:  r.Chunk.Text,
			Distance: r.Distance,
			Rank:     r.Rank,
		}
	}
	return c.JSON(fiber.Map{
		"query":   params.Query,
		"results": out,
	})
}
