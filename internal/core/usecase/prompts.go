package usecase

import (
	"fmt"
	"regexp"
	"strings"
)

// PromptTemplate is versioned, parameterized data, not code. Substitution
// goes through Fill, which rejects unknown placeholders on either side.
type PromptTemplate struct {
	Name    string
	Version string
	Body    string
}

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// Fill substitutes {name} placeholders from vars. Every placeholder in the
// body must have a value and every value must be used, so a stale template
// or a stale call site fails loudly instead of emitting broken prompts.
func (t PromptTemplate) Fill(vars map[string]string) (string, error) {
	used := make(map[string]bool, len(vars))
	var missing []string

	out := placeholderPattern.ReplaceAllStringFunc(t.Body, func(token string) string {
		key := token[1 : len(token)-1]
		value, ok := vars[key]
		if !ok {
			missing = append(missing, key)
			return token
		}
		used[key] = true
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("prompt %s/%s: missing placeholder values: %s", t.Name, t.Version, strings.Join(missing, ", "))
	}
	for key := range vars {
		if !used[key] {
			return "", fmt.Errorf("prompt %s/%s: unexpected placeholder key %q", t.Name, t.Version, key)
		}
	}
	return out, nil
}

// AggregationPrompt instructs the generator to answer from the complete
// fund statistics and to surface multiple funds, never just the winner.
var AggregationPrompt = PromptTemplate{
	Name:    "aggregation",
	Version: "v1",
	Body: `You are a financial data analyst. Answer the question using ONLY the aggregated statistics below computed from ALL funds in the dataset.

CRITICAL RULES:
1. Use ONLY the statistics in the CONTEXT below
2. The data already includes ALL funds - no missing funds
3. Cite specific numbers and rankings from context
4. Format currency values clearly with $ and commas
5. When comparing funds, show multiple funds, not just the top one
6. Format the answer with **bold** key terms, bulleted or numbered lists, and blank lines between sections

CONTEXT (Complete Fund Statistics):
{context}

QUESTION: {question}

ANSWER (with specific numbers from context):`,
}

// SpecificPrompt instructs exact-data-only answers with the canonical
// refusal when the retrieved chunks are insufficient.
var SpecificPrompt = PromptTemplate{
	Name:    "specific",
	Version: "v1",
	Body: `You are a financial data analyst. Answer the question using ONLY the provided context chunks from holdings and trades data.

CRITICAL RULES:
1. Use ONLY the data in the CONTEXT below
2. For counts: COUNT non-zero Qty rows per fund
3. If insufficient data: respond exactly "Sorry, I cannot find the answer in the provided data"
4. Cite specific numbers and fund names from context
5. Be precise with values from the data
6. Format the answer with **bold** key terms, bulleted or numbered lists, and blank lines between sections

CONTEXT (Retrieved Chunks):
{context}

QUESTION: {question}

ANSWER (with specific numbers from context):`,
}
