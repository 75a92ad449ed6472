package model

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"docquery/types"
)

// GeminiGenerator calls the hosted Gemini API with near-deterministic
// settings (temperature 0.1, bounded output).
type GeminiGenerator struct {
	apiKey string
	model  string
}

func NewGeminiGenerator(apiKey, model string) *GeminiGenerator {
	return &GeminiGenerator{
		apiKey: strings.TrimSpace(apiKey),
		model:  model,
	}
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, types.TokenUsage, error) {
	var usage types.TokenUsage
	if g.apiKey == "" {
		return "", usage, fmt.Errorf("gemini api key is not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", usage, err
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](0.1),
			TopP:            genai.Ptr[float32](0.8),
			MaxOutputTokens: 2048,
		},
	)
	if err != nil {
		return "", usage, err
	}
	if resp.UsageMetadata != nil {
		usage.Prompt = int(resp.UsageMetadata.PromptTokenCount)
		usage.Completion = int(resp.UsageMetadata.CandidatesTokenCount)
	} else {
		usage.Prompt = CountTokens(prompt)
	}
	text := strings.TrimSpace(resp.Text())
	if usage.Completion == 0 {
		usage.Completion = CountTokens(text)
	}
	return text, usage, nil
}

// GeminiEmbedder calls the hosted Gemini embedding API.
type GeminiEmbedder struct {
	apiKey string
	model  string
}

func NewGeminiEmbedder(apiKey, model string) *GeminiEmbedder {
	return &GeminiEmbedder{
		apiKey: strings.TrimSpace(apiKey),
		model:  model,
	}
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  e.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		e.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	vec := make([]float64, len(resp.Embeddings[0].Values))
	for i, v := range resp.Embeddings[0].Values {
		vec[i] = float64(v)
	}
	norm := normalize64(vec)
	out := make([]float32, len(norm))
	for i, v := range norm {
		out[i] = float32(v)
	}
	return out, nil
}
