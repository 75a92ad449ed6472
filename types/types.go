package types

import (
	"time"

	"github.com/google/uuid"
)

type DocumentFormat string

const (
	FormatPDF   DocumentFormat = "pdf"
	FormatDOCX  DocumentFormat = "docx"
	FormatEmail DocumentFormat = "email"
	FormatAuto  DocumentFormat = "auto"
)

// Page is one unit of source text with its 1-based page number. DOCX and
// email sources produce a single page; PDF sources produce one per PDF page.
type Page struct {
	Number int
	Text   string
}

type Document struct {
	ID        uuid.UUID
	Source    string // path or URL the document was loaded from
	Format    DocumentFormat
	Title     string
	Pages     []Page
	CreatedAt time.Time
}

// Text returns the concatenated page text in page order.
func (d *Document) Text() string {
	var total int
	for _, p := range d.Pages {
		total += len(p.Text)
	}
	buf := make([]byte, 0, total)
	for _, p := range d.Pages {
		buf = append(buf, p.Text...)
	}
	return string(buf)
}

// Chunk is a contiguous slice of document text, the unit of retrieval.
// Start/End are offsets into the document's concatenated page text, Page is
// the page number of the chunk's starting character and PageStart the offset
// of that character within its page.
type Chunk struct {
	ID        uuid.UUID
	DocID     uuid.UUID
	Index     int
	Text      string
	Page      int
	Start     int
	End       int
	PageStart int
	Embedding []float32
}

// RetrievalResult is one ranked chunk returned for a query. Distance is
// cosine distance, smaller is closer.
type RetrievalResult struct {
	Chunk    Chunk
	Distance float64
	Rank     int
}

type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
}

func (u *TokenUsage) Add(other TokenUsage) {
	u.Prompt += other.Prompt
	u.Completion += other.Completion
}

const (
	MetaParseDegraded = "parse_degraded"
	MetaRetryError    = "retry_error"
)

type Answer struct {
	Question        string         `json:"question"`
	Answer          string         `json:"answer"`
	ConfidenceScore float64        `json:"confidence_score"`
	QueryType       string         `json:"query_type"`
	SourceCitations []string       `json:"source_citations"`
	ProcessingTime  int64          `json:"processing_time"` // milliseconds
	ContextChunks   int            `json:"context_chunks_used"`
	TokenUsage      TokenUsage     `json:"-"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Degraded reports whether the answer was produced by a fallback path: an
// unparseable model response or exhausted retries against the reasoning model.
func (a *Answer) Degraded() bool {
	if a.Metadata == nil {
		return false
	}
	if v, ok := a.Metadata[MetaParseDegraded].(bool); ok && v {
		return true
	}
	_, ok := a.Metadata[MetaRetryError]
	return ok
}

const (
	StatusSuccess = "success"
	StatusPartial = "partial"
)

type DocumentStatistics struct {
	AverageConfidence float64 `json:"average_confidence"`
	DocumentCount     int     `json:"document_count"`
	ChunkCount        int     `json:"chunk_count"`
}

type QueryResponse struct {
	SessionID           string             `json:"session_id"`
	Answers             []Answer           `json:"answers"`
	TotalProcessingTime int64              `json:"total_processing_time"`
	TotalTokenUsage     TokenUsage         `json:"total_token_usage"`
	DocumentStatistics  DocumentStatistics `json:"document_statistics"`
	Status              string             `json:"status"`
	Timestamp           string             `json:"timestamp"`
}
