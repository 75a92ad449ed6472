// Package agent turns a question and its retrieved context into a structured
// answer by calling the external reasoning model.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"docquery/model"
	"docquery/types"
)

// NeedsMoreInfo is the decision emitted when the reasoning model stays
// unreachable after all retries.
const NeedsMoreInfo = "Needs More Info"

type Synthesizer struct {
	gen      model.Generator
	limiter  *rate.Limiter
	attempts int
	logger   *zap.Logger
}

func NewSynthesizer(gen model.Generator, callsPerSecond float64, attempts int, logger *zap.Logger) *Synthesizer {
	if attempts < 1 {
		attempts = 1
	}
	return &Synthesizer{
		gen:      gen,
		limiter:  rate.NewLimiter(rate.Limit(callsPerSecond), 1),
		attempts: attempts,
		logger:   logger,
	}
}

// modelOutput is the JSON shape the prompt demands from the model.
type modelOutput struct {
	Answer     string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	Citations  []string `json:"citations"`
	Rationale  string   `json:"rationale"`
}

// Answer produces one structured answer. It never returns an error: a
// malformed model response degrades the answer (confidence 0, parse_degraded
// marker) and exhausted retries emit a "Needs More Info" answer with the
// error recorded in metadata, so one bad question cannot abort a batch.
func (s *Synthesizer) Answer(ctx context.Context, question string, results []types.RetrievalResult, includeMetadata bool) types.Answer {
	start := time.Now()

	queryType := ClassifyQuery(question)
	prompt := BuildPrompt(queryType, question, results)

	answer := types.Answer{
		Question:      question,
		QueryType:     queryType,
		ContextChunks: len(results),
		Metadata:      map[string]any{},
	}

	raw, usage, err := s.generateWithRetry(ctx, prompt)
	answer.TokenUsage = usage
	if err != nil {
		s.logger.Warn("reasoning model unavailable",
			zap.String("query_type", queryType),
			zap.Error(err),
		)
		answer.Answer = NeedsMoreInfo
		answer.ConfidenceScore = 0
		answer.SourceCitations = []string{}
		answer.Metadata[types.MetaRetryError] = err.Error()
		answer.ProcessingTime = time.Since(start).Milliseconds()
		s.finishMetadata(&answer, includeMetadata)
		return answer
	}

	out, ok := parseModelOutput(raw)
	if !ok {
		// Expected-but-undesirable path: keep the raw text, flag it, move on.
		answer.Answer = raw
		answer.ConfidenceScore = 0
		answer.SourceCitations = []string{}
		answer.Metadata[types.MetaParseDegraded] = true
	} else {
		answer.Answer = out.Answer
		answer.ConfidenceScore = clamp01(out.Confidence)
		answer.SourceCitations = filterCitations(out.Citations, results)
		if out.Rationale != "" {
			answer.Metadata["rationale"] = out.Rationale
		}
	}

	answer.ProcessingTime = time.Since(start).Milliseconds()
	s.finishMetadata(&answer, includeMetadata)
	return answer
}

func (s *Synthesizer) finishMetadata(a *types.Answer, includeMetadata bool) {
	if includeMetadata {
		a.Metadata["word_count"] = len(strings.Fields(a.Answer))
		a.Metadata["character_count"] = len(a.Answer)
	}
	if len(a.Metadata) == 0 {
		a.Metadata = nil
	}
}

// generateWithRetry calls the reasoning model up to s.attempts times with
// attempt-scaled backoff. The rate limiter caps in-flight call frequency
// across concurrently answered questions.
func (s *Synthesizer) generateWithRetry(ctx context.Context, prompt string) (string, types.TokenUsage, error) {
	var usage types.TokenUsage
	var lastErr error

	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", usage, fmt.Errorf("%w: %v", types.ErrReasoningService, err)
		}

		raw, u, err := s.gen.Generate(ctx, prompt)
		usage.Add(u)
		if err == nil {
			return raw, usage, nil
		}
		lastErr = err
		s.logger.Debug("reasoning call failed", zap.Int("attempt", attempt), zap.Error(err))

		if attempt == s.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", usage, fmt.Errorf("%w: %v", types.ErrReasoningService, ctx.Err())
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return "", usage, fmt.Errorf("%w: after %d attempts: %v", types.ErrReasoningService, s.attempts, lastErr)
}

// parseModelOutput extracts the first well-formed JSON object from the raw
// model response, tolerating markdown fences and surrounding prose.
func parseModelOutput(raw string) (modelOutput, bool) {
	obj, err := extractJSON(raw)
	if err != nil {
		return modelOutput{}, false
	}
	var out modelOutput
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return modelOutput{}, false
	}
	if out.Answer == "" {
		return modelOutput{}, false
	}
	return out, true
}

// extractJSON scans for the first balanced top-level JSON object in s.
func extractJSON(s string) (string, error) {
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], nil
				}
			}
		}
	}
	return "", errors.New("no valid json found")
}

// filterCitations keeps only citations naming pages that were actually
// retrieved for this question, deduplicated, in model order.
func filterCitations(citations []string, results []types.RetrievalResult) []string {
	valid := make(map[string]struct{}, len(results))
	for _, r := range results {
		valid[fmt.Sprintf("Page %d", r.Chunk.Page)] = struct{}{}
	}

	out := make([]string, 0, len(citations))
	seen := make(map[string]struct{}, len(citations))
	for _, c := range citations {
		if _, ok := valid[c]; !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
