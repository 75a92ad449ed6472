package types

import "errors"

// Pipeline error taxonomy. Load and index failures abort the whole request;
// per-question synthesis failures degrade only their own answer.
var (
	ErrUnsupportedFormat  = errors.New("unsupported document format")
	ErrSourceUnavailable  = errors.New("document source unavailable")
	ErrEmptyDocument      = errors.New("document contains no extractable text")
	ErrInvalidChunkParams = errors.New("invalid chunk parameters")
	ErrEmbeddingService   = errors.New("embedding service error")
	ErrEmptyIndex         = errors.New("similarity index is empty")
	ErrReasoningService   = errors.New("reasoning service error")
)
