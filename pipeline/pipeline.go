// Package pipeline orchestrates the document-to-answer flow: load, chunk,
// embed and index once per request, then answer every question against the
// frozen index and assemble the response envelope.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"docquery/index"
	"docquery/model"
	"docquery/splitter"
	"docquery/types"
)

// DocumentLoader is the loading collaborator; satisfied by loader.Service.
type DocumentLoader interface {
	Load(ctx context.Context, source string, format types.DocumentFormat) (*types.Document, error)
}

// Answerer is the synthesis collaborator; satisfied by agent.Synthesizer.
type Answerer interface {
	Answer(ctx context.Context, question string, results []types.RetrievalResult, includeMetadata bool) types.Answer
}

// Archive receives ingested documents for durable storage. Archiving is
// best-effort: failures are logged, never surfaced to the request.
type Archive interface {
	SaveDocument(ctx context.Context, doc *types.Document) error
	SaveChunks(ctx context.Context, chunks []types.Chunk) error
}

type Pipeline struct {
	loader        DocumentLoader
	embedder      model.Embedder
	synth         Answerer
	archive       Archive // nil when no archive is configured
	maxConcurrent int
	embedTimeout  time.Duration
	logger        *zap.Logger
}

func New(dl DocumentLoader, embedder model.Embedder, synth Answerer, archive Archive, maxConcurrent int, embedTimeout time.Duration, logger *zap.Logger) *Pipeline {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Pipeline{
		loader:        dl,
		embedder:      embedder,
		synth:         synth,
		archive:       archive,
		maxConcurrent: maxConcurrent,
		embedTimeout:  embedTimeout,
		logger:        logger,
	}
}

// Run executes one full request: build phase, query phase, assembly. Load
// and index-build failures abort the whole request; per-question failures
// only degrade their own answer.
func (p *Pipeline) Run(ctx context.Context, req *types.AnswerRequest, sessionID string) (*types.QueryResponse, error) {
	start := time.Now()
	req.ProcessingOptions.Normalize()

	idx, docs, chunks, err := p.BuildIndex(ctx, req.Documents, req.DocumentFormat, req.ProcessingOptions)
	if err != nil {
		return nil, err
	}

	answers := p.AnswerAll(ctx, req.Questions, idx, req.ProcessingOptions)

	resp := Assemble(sessionID, answers, len(docs), len(chunks))
	p.logger.Info("request processed",
		zap.String("session_id", sessionID),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.Int("questions", len(req.Questions)),
		zap.String("status", resp.Status),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

// BuildIndex loads and chunks every document, embeds all chunks, and only
// then populates the index, so an embedding failure leaves no partial index.
func (p *Pipeline) BuildIndex(ctx context.Context, sources []string, format types.DocumentFormat, opts types.ProcessingOptions) (*index.Memory, []*types.Document, []types.Chunk, error) {
	split, err := splitter.New(opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, nil, nil, err
	}

	var docs []*types.Document
	var chunks []types.Chunk
	for _, source := range sources {
		doc, err := p.loader.Load(ctx, source, format)
		if err != nil {
			return nil, nil, nil, err
		}
		docChunks, err := split.Split(doc)
		if err != nil {
			return nil, nil, nil, err
		}
		docs = append(docs, doc)
		chunks = append(chunks, docChunks...)
	}

	vectors := make([][]float32, len(chunks))
	for i := range chunks {
		vec, err := p.embedChunk(ctx, chunks[i].Text)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: chunk %d: %v", types.ErrEmbeddingService, chunks[i].Index, err)
		}
		vectors[i] = vec
	}

	idx := index.NewMemory()
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
		idx.Insert(chunks[i], vectors[i])
	}

	p.archiveAsync(docs, chunks)
	return idx, docs, chunks, nil
}

func (p *Pipeline) embedChunk(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.embedTimeout)
	defer cancel()
	return p.embedder.Embed(ctx, text)
}

// archiveAsync persists the ingested documents in the background when an
// archive is configured. The request does not wait for it.
func (p *Pipeline) archiveAsync(docs []*types.Document, chunks []types.Chunk) {
	if p.archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, doc := range docs {
			if err := p.archive.SaveDocument(ctx, doc); err != nil {
				p.logger.Warn("failed to archive document", zap.String("source", doc.Source), zap.Error(err))
				return
			}
		}
		if err := p.archive.SaveChunks(ctx, chunks); err != nil {
			p.logger.Warn("failed to archive chunks", zap.Error(err))
		}
	}()
}

// AnswerAll answers every question against the frozen index, at most
// maxConcurrent in flight. Answers land in the slot of their question, so
// output order always matches input order regardless of completion order.
// Once ctx is cancelled no further questions are dispatched.
func (p *Pipeline) AnswerAll(ctx context.Context, questions []string, idx *index.Memory, opts types.ProcessingOptions) []types.Answer {
	answers := make([]types.Answer, len(questions))
	if len(questions) == 0 {
		return answers
	}

	sem := make(chan struct{}, p.maxConcurrent)
	var wg sync.WaitGroup
	for i, question := range questions {
		if ctx.Err() != nil {
			answers[i] = cancelledAnswer(question, ctx.Err())
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(slot int, q string) {
			defer wg.Done()
			defer func() { <-sem }()
			answers[slot] = p.answerOne(ctx, q, idx, opts)
		}(i, question)
	}
	wg.Wait()
	return answers
}

func (p *Pipeline) answerOne(ctx context.Context, question string, idx *index.Memory, opts types.ProcessingOptions) types.Answer {
	start := time.Now()

	vec, err := p.embedChunk(ctx, question)
	if err != nil {
		return failedAnswer(question, start, fmt.Errorf("%w: %v", types.ErrEmbeddingService, err))
	}

	results, err := idx.Search(vec, opts.TopKRetrieval)
	if err != nil {
		return failedAnswer(question, start, err)
	}

	return p.synth.Answer(ctx, question, results, opts.IncludeMetadata)
}

// failedAnswer degrades a single question whose query phase failed before
// synthesis; the batch keeps going.
func failedAnswer(question string, start time.Time, err error) types.Answer {
	return types.Answer{
		Question:        question,
		Answer:          "Needs More Info",
		ConfidenceScore: 0,
		QueryType:       "unknown",
		SourceCitations: []string{},
		ProcessingTime:  time.Since(start).Milliseconds(),
		Metadata:        map[string]any{types.MetaRetryError: err.Error()},
	}
}

func cancelledAnswer(question string, err error) types.Answer {
	return types.Answer{
		Question:        question,
		Answer:          "Needs More Info",
		ConfidenceScore: 0,
		QueryType:       "unknown",
		SourceCitations: []string{},
		Metadata:        map[string]any{types.MetaRetryError: err.Error()},
	}
}

// Assemble builds the response envelope: per-answer sums, the arithmetic
// mean of confidences (degraded answers count as 0), and a status of
// "partial" when any answer is degraded.
func Assemble(sessionID string, answers []types.Answer, documentCount, chunkCount int) *types.QueryResponse {
	resp := &types.QueryResponse{
		SessionID: sessionID,
		Answers:   answers,
		Status:    types.StatusSuccess,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DocumentStatistics: types.DocumentStatistics{
			DocumentCount: documentCount,
			ChunkCount:    chunkCount,
		},
	}

	var confidenceSum float64
	for i := range answers {
		resp.TotalProcessingTime += answers[i].ProcessingTime
		resp.TotalTokenUsage.Add(answers[i].TokenUsage)
		confidenceSum += answers[i].ConfidenceScore
		if answers[i].Degraded() {
			resp.Status = types.StatusPartial
		}
	}
	if len(answers) > 0 {
		resp.DocumentStatistics.AverageConfidence = confidenceSum / float64(len(answers))
	}
	return resp
}
