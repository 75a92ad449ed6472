package model

import (
	"context"

	"docquery/types"
)

// Embedder turns text into a fixed-length unit-normalized vector. The same
// embedder must be used for chunks and for questions so distances compare.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator is the external reasoning model: prompt in, text plus token
// accounting out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, types.TokenUsage, error)
}
