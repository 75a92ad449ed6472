package agent

import "strings"

// Query type tags reported on each answer and used to pick the prompt focus.
const (
	QueryCoverage  = "coverage"
	QueryExclusion = "exclusion"
	QueryProcedure = "procedure"
	QueryCondition = "condition"
	QueryAmount    = "amount"
	QueryTimeline  = "timeline"
)

var queryPatterns = map[string][]string{
	QueryCoverage: {
		"cover", "coverage", "include", "benefit", "eligible",
		"reimburse", "pay", "compensate",
	},
	QueryExclusion: {
		"exclude", "exclusion", "not cover", "except", "limitation",
		"restrict", "prohibit", "bar",
	},
	QueryProcedure: {
		"procedure", "surgery", "treatment", "operation", "therapy",
		"intervention", "process",
	},
	QueryCondition: {
		"condition", "requirement", "criteria", "prerequisite",
		"qualify", "eligible", "must", "should",
	},
	QueryAmount: {
		"amount", "cost", "price", "fee", "charge", "limit",
		"maximum", "minimum", "sum", "value",
	},
	QueryTimeline: {
		"when", "time", "period", "duration", "deadline", "date",
		"waiting", "grace", "term",
	},
}

// ClassifyQuery scores the question against each keyword bucket and returns
// the best match, defaulting to coverage.
func ClassifyQuery(question string) string {
	lower := strings.ToLower(question)

	best := QueryCoverage
	bestScore := 0
	// Deterministic bucket order so equal scores always resolve the same way.
	for _, qt := range []string{
		QueryCoverage, QueryExclusion, QueryProcedure,
		QueryCondition, QueryAmount, QueryTimeline,
	} {
		score := 0
		for _, pattern := range queryPatterns[qt] {
			if strings.Contains(lower, pattern) {
				score++
			}
		}
		if score > bestScore {
			best = qt
			bestScore = score
		}
	}
	return best
}
