package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"docquery/types"
)

// OllamaEmbedder calls a local Ollama server's embedding endpoint.
type OllamaEmbedder struct {
	apiURL  string
	model   string
	timeout time.Duration
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func NewOllamaEmbedder(apiURL, model string, timeout time.Duration) *OllamaEmbedder {
	return &OllamaEmbedder{
		apiURL:  apiURL,
		model:   model,
		timeout: timeout,
	}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := ollamaEmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var ollamaResp ollamaEmbeddingResponse
	if err := json.Unmarshal(respBody, &ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(ollamaResp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}

	norm := normalize64(ollamaResp.Embedding)
	embedding := make([]float32, len(norm))
	for i, v := range norm {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// normalize64 scales the vector to unit length so cosine distance reduces to
// one minus the dot product.
func normalize64(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	for i, x := range vec {
		vec[i] = x / norm
	}
	return vec
}

// OllamaGenerator calls a local Ollama server's generate endpoint. Token
// usage is estimated with tiktoken since Ollama reports none.
type OllamaGenerator struct {
	apiURL  string
	model   string
	timeout time.Duration
}

func NewOllamaGenerator(apiURL, model string, timeout time.Duration) *OllamaGenerator {
	return &OllamaGenerator{
		apiURL:  apiURL,
		model:   model,
		timeout: timeout,
	}
}

type ollamaGenerateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Stream      bool    `json:"stream"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, types.TokenUsage, error) {
	var usage types.TokenUsage

	reqBody, err := json.Marshal(ollamaGenerateRequest{
		Model:       g.model,
		Prompt:      prompt,
		Stream:      false,
		Temperature: 0.1,
		MaxTokens:   2048,
	})
	if err != nil {
		return "", usage, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", usage, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", usage, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", usage, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", usage, fmt.Errorf("ollama API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var genResp ollamaGenerateResponse
	output := ""
	if err := json.Unmarshal(body, &genResp); err == nil && genResp.Response != "" {
		output = genResp.Response
	} else {
		// Streaming body: collect every chunk into one string.
		decoder := json.NewDecoder(bytes.NewReader(body))
		for decoder.More() {
			var chunk ollamaGenerateResponse
			if err := decoder.Decode(&chunk); err != nil {
				break
			}
			output += chunk.Response
		}
	}

	usage.Prompt = CountTokens(prompt)
	usage.Completion = CountTokens(output)
	return output, usage, nil
}
