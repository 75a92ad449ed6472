// Package store is the optional pgvector-backed archive for ingested
// documents. The per-request in-memory index stays the retrieval path; the
// archive keeps ingested material queryable across restarts.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"docquery/types"
)

type Storer interface {
	SaveDocument(ctx context.Context, doc *types.Document) error
	SaveChunks(ctx context.Context, chunks []types.Chunk) error
	ListDocuments(ctx context.Context) ([]ArchivedDocument, error)
	Search(ctx context.Context, vector []float32, limit int) ([]types.RetrievalResult, error)
	Close()
}

type ArchivedDocument struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	Format    string    `json:"format"`
	PageCount int       `json:"page_count"`
	CreatedAt time.Time `json:"created_at"`
}

type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresStore(ctx context.Context, connStr string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (p *PostgresStore) Init(ctx context.Context) error {
	// vector(768) matches the embedding models wired in config
	// (text-embedding-004 and nomic-embed-text are both 768-dimensional).
	query := `
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		source TEXT,
		format TEXT,
		page_count INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id UUID PRIMARY KEY,
		doc_id UUID NOT NULL,
		position INT NOT NULL,
		page INT NOT NULL,
		content TEXT NOT NULL,
		embedding vector(768)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);
	`
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) SaveDocument(ctx context.Context, doc *types.Document) error {
	query := `INSERT INTO documents (id, title, source, format, page_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			source = EXCLUDED.source,
			format = EXCLUDED.format,
			page_count = EXCLUDED.page_count
		`
	_, err := p.pool.Exec(ctx, query,
		doc.ID, doc.Title, doc.Source, string(doc.Format), len(doc.Pages), doc.CreatedAt,
	)
	return err
}

// SaveChunks replaces every archived chunk of the documents the chunks
// belong to, keeping re-ingestion idempotent per document.
func (p *PostgresStore) SaveChunks(ctx context.Context, chunks []types.Chunk) error {
	docIDs := make(map[uuid.UUID]struct{})
	for i := range chunks {
		docIDs[chunks[i].DocID] = struct{}{}
	}
	for docID := range docIDs {
		if _, err := p.pool.Exec(ctx, "DELETE FROM chunks WHERE doc_id = $1", docID); err != nil {
			return fmt.Errorf("error deleting old chunks: %w", err)
		}
	}

	query := `
	INSERT INTO chunks (id, doc_id, position, page, content, embedding)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i := range chunks {
		c := &chunks[i]
		_, err := p.pool.Exec(ctx, query,
			c.ID, c.DocID, c.Index, c.Page, c.Text, pgvector.NewVector(c.Embedding),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresStore) ListDocuments(ctx context.Context) ([]ArchivedDocument, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT id, title, source, format, page_count, created_at FROM documents ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []ArchivedDocument
	for rows.Next() {
		var d ArchivedDocument
		if err := rows.Scan(&d.ID, &d.Title, &d.Source, &d.Format, &d.PageCount, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Search runs a cosine-distance nearest-neighbor query over the archive,
// the same distance function the in-memory index uses.
func (p *PostgresStore) Search(ctx context.Context, vector []float32, limit int) ([]types.RetrievalResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	query := `
		SELECT c.id, c.doc_id, c.position, c.page, c.content,
		       c.embedding <=> $1 AS distance
		FROM chunks c
		WHERE c.embedding IS NOT NULL
		ORDER BY c.embedding <=> $1, c.position
		LIMIT $2
	`
	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []types.RetrievalResult
	for rows.Next() {
		var r types.RetrievalResult
		if err := rows.Scan(
			&r.Chunk.ID, &r.Chunk.DocID, &r.Chunk.Index, &r.Chunk.Page,
			&r.Chunk.Text, &r.Distance,
		); err != nil {
			return nil, err
		}
		r.Rank = len(results) + 1
		results = append(results, r)
	}
	return results, rows.Err()
}

func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
		p.logger.Info("postgres connection pool closed")
	}
}
