package agent

import (
	"fmt"
	"strings"

	"docquery/types"
)

const baseInstructions = `You are an expert document analyst specializing in insurance, legal, HR, and compliance domains.
Analyze the provided context and answer the question with high accuracy and clear explanations.`

var typeInstructions = map[string]string{
	QueryCoverage:  "Focus on what IS covered, benefits, inclusions, and eligibility criteria.",
	QueryExclusion: "Focus on what IS NOT covered, limitations, restrictions, and exclusions.",
	QueryProcedure: "Focus on step-by-step processes, requirements, and procedures.",
	QueryCondition: "Focus on conditions, requirements, criteria, and qualifications.",
	QueryAmount:    "Focus on monetary amounts, limits, costs, and financial details.",
	QueryTimeline:  "Focus on timeframes, deadlines, waiting periods, and temporal aspects.",
}

// BuildPrompt embeds the retrieved chunks (with page citations) and the
// question into a prompt that demands a single JSON object back.
func BuildPrompt(queryType, question string, results []types.RetrievalResult) string {
	var context strings.Builder
	for i, r := range results {
		fmt.Fprintf(&context, "[Document %d] (Page %d) %s\n\n", i+1, r.Chunk.Page, r.Chunk.Text)
	}

	return fmt.Sprintf(`%s

%s

CRITICAL REQUIREMENTS:
1. Use ONLY the provided context to answer.
2. Cite the page numbers of the context passages you relied on.
3. If information is insufficient, clearly state what's missing.
4. Be precise and avoid speculation.

Context:
%s
Question: %s

OUTPUT RULES (MANDATORY):
- Output MUST be a single valid JSON object.
- Output MUST start with '{' and end with '}'.
- Do NOT include explanations, comments, or markdown outside the JSON.

JSON STRUCTURE (FIXED):
{
  "answer": "<direct answer with supporting details>",
  "confidence": <number between 0 and 1>,
  "citations": ["Page N", ...],
  "rationale": "<one or two sentences explaining the decision>"
}

NOW answer the question and return ONLY the JSON object.`,
		baseInstructions,
		typeInstructions[queryType],
		context.String(),
		question,
	)
}
