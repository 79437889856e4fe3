package usecase

import (
	"context"
	"errors"

	"github.com/ovolkov/fund-insight/internal/core/domain"
)

var errEmptyDataset = errors.New("dataset has no funds")

// HybridRetrieval routes each question to exactly one retrieval path.
// Route selection is a one-shot decision: a failed aggregation never
// retries semantically, and vice versa.
type HybridRetrieval struct {
	router     *QueryRouter
	aggregates *AggregateEngine
	retriever  *SemanticRetriever
}

func NewHybridRetrieval(router *QueryRouter, aggregates *AggregateEngine, retriever *SemanticRetriever) *HybridRetrieval {
	return &HybridRetrieval{
		router:     router,
		aggregates: aggregates,
		retriever:  retriever,
	}
}

// RetrieveContext classifies the question and produces the context string
// for generation. The routing decision travels with the context so the
// assembler never re-derives it.
func (h *HybridRetrieval) RetrieveContext(ctx context.Context, question string, topK int) (domain.RoutedContext, error) {
	class := h.router.Classify(question)
	routed := domain.RoutedContext{Class: class}

	if class == domain.QueryClassAggregation {
		// Aggregation is not allowed to crash the pipeline; any failure
		// downgrades to the standard no-data signal.
		report, err := h.aggregates.ComputeAggregates()
		if err != nil {
			return routed, domain.WrapError(domain.ErrNoData, "compute aggregates", err)
		}
		if len(report.Funds) == 0 {
			return routed, domain.WrapError(domain.ErrNoData, "compute aggregates", errEmptyDataset)
		}
		routed.Context = h.aggregates.FormatReport(report, question)
		return routed, nil
	}

	kept, err := h.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return routed, err
	}
	routed.Context = formatMatches(kept)
	routed.Stats = domain.SummarizeMatches(kept)
	return routed, nil
}

// Router exposes the classification heuristic for callers that only need
// the routing decision.
func (h *HybridRetrieval) Router() *QueryRouter {
	return h.router
}
