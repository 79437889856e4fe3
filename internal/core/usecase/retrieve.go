package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/ovolkov/fund-insight/internal/core/domain"
	"github.com/ovolkov/fund-insight/internal/core/ports"
)

// RetrieverConfig bounds the semantic retrieval pipeline.
type RetrieverConfig struct {
	TopK           int
	MinScore       float64
	MinMatches     int
	DedupTolerance float64
}

func (c RetrieverConfig) withDefaults() RetrieverConfig {
	if c.TopK <= 0 {
		c.TopK = 10
	}
	if c.MinScore <= 0 {
		c.MinScore = 0.3
	}
	if c.MinMatches <= 0 {
		c.MinMatches = 3
	}
	if c.DedupTolerance <= 0 {
		c.DedupTolerance = 0.05
	}
	return c
}

// SemanticRetriever issues similarity queries, validates relevance, removes
// near-duplicate hits and renders the survivors as a context string.
type SemanticRetriever struct {
	embedder ports.Embedder
	searcher ports.VectorSearcher
	cfg      RetrieverConfig
}

func NewSemanticRetriever(embedder ports.Embedder, searcher ports.VectorSearcher, cfg RetrieverConfig) *SemanticRetriever {
	return &SemanticRetriever{
		embedder: embedder,
		searcher: searcher,
		cfg:      cfg.withDefaults(),
	}
}

var (
	plKeywords       = []string{"performance", "p&l", "profit", "loss", "pl_ytd", "yearly", "return"}
	tradeKeywords    = []string{"trade", "buy", "sell", "transaction", "purchase"}
	holdingsKeywords = []string{"holding", "position", "quantity held", "owns"}
)

// PrefilterQuery scans the question for topic keywords and produces the
// server-side filter plus a preferred partition. An empty partition means
// search both. This classification is distinct from the query router's
// aggregation/specific split.
func (r *SemanticRetriever) PrefilterQuery(question string) (domain.SearchFilter, domain.Partition) {
	q := strings.ToLower(question)
	var filter domain.SearchFilter
	var partition domain.Partition

	if containsAny(q, plKeywords) {
		filter.HasPL = true
		partition = domain.PartitionHoldings
	}
	if containsAny(q, tradeKeywords) {
		partition = domain.PartitionTrades
	}
	if containsAny(q, holdingsKeywords) {
		partition = domain.PartitionHoldings
	}
	return filter, partition
}

// RetrieveAndValidate is the complete pipeline: prefilter, search, validate,
// deduplicate, format. The single failure mode is no-data; transport errors
// from the search capability map to it and never reach the answer.
func (r *SemanticRetriever) RetrieveAndValidate(ctx context.Context, question string, topK int) (string, error) {
	kept, err := r.Retrieve(ctx, question, topK)
	if err != nil {
		return "", err
	}
	return formatMatches(kept), nil
}

// Retrieve runs the same pipeline but returns the surviving matches
// unformatted, for callers that need the match list itself.
func (r *SemanticRetriever) Retrieve(ctx context.Context, question string, topK int) ([]domain.RetrievedMatch, error) {
	if topK <= 0 {
		topK = r.cfg.TopK
	}
	filter, partition := r.PrefilterQuery(question)

	queryVector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, domain.WrapError(domain.ErrNoData, "embed query", err)
	}

	var matches []domain.RetrievedMatch
	if partition != "" {
		matches, err = r.searcher.Search(ctx, partition, queryVector, topK, filter)
	} else {
		matches, err = r.searcher.SearchAll(ctx, queryVector, topK, filter)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrNoData, "semantic search", err)
	}

	valid, err := r.validate(matches)
	if err != nil {
		return nil, err
	}

	return r.deduplicate(valid), nil
}

// validate is a double gate: matches must exist, and enough of them must
// clear the relevance threshold. A single weak hit is not evidence.
func (r *SemanticRetriever) validate(matches []domain.RetrievedMatch) ([]domain.RetrievedMatch, error) {
	if len(matches) == 0 {
		return nil, domain.WrapError(domain.ErrNoData, "validate retrieval", fmt.Errorf("zero matches"))
	}

	relevant := make([]domain.RetrievedMatch, 0, len(matches))
	for _, m := range matches {
		if m.Score >= r.cfg.MinScore {
			relevant = append(relevant, m)
		}
	}
	if len(relevant) < r.cfg.MinMatches {
		return nil, domain.WrapError(
			domain.ErrNoData,
			"validate retrieval",
			fmt.Errorf("%d of %d matches above threshold %.2f, need %d", len(relevant), len(matches), r.cfg.MinScore, r.cfg.MinMatches),
		)
	}
	return relevant, nil
}

// deduplicate walks the score-sorted list keeping the best match of every
// same-fund near-score group. Near-identical scores for the same fund are
// presumed redundant content, not independent evidence.
func (r *SemanticRetriever) deduplicate(matches []domain.RetrievedMatch) []domain.RetrievedMatch {
	if len(matches) == 0 {
		return matches
	}

	kept := []domain.RetrievedMatch{matches[0]}
	for _, m := range matches[1:] {
		duplicate := false
		for _, k := range kept {
			if m.Fund == k.Fund && abs(m.Score-k.Score) < r.cfg.DedupTolerance {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, m)
		}
	}
	return kept
}

func formatMatches(matches []domain.RetrievedMatch) string {
	if len(matches) == 0 {
		return "No relevant data found."
	}

	parts := make([]string, 0, len(matches))
	for i, m := range matches {
		header := fmt.Sprintf("=== Chunk %d (Fund: %s, Source: %s, Relevance: %.2f) ===", i+1, m.Fund, m.Source, m.Score)
		parts = append(parts, header+"\n"+m.Text+"\n")
	}
	return strings.Join(parts, "\n")
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
