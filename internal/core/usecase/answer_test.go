package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ovolkov/fund-insight/internal/core/domain"
)

type generatorFake struct {
	reply string
	err   error

	prompt string
	calls  int
}

func (f *generatorFake) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestAssembler(dataset *domain.Dataset, searcher *retrieveSearcherFake, gen *generatorFake) *AnswerAssembler {
	return NewAnswerAssembler(newTestHybrid(dataset, searcher), gen)
}

func specificMatches() []domain.RetrievedMatch {
	return []domain.RetrievedMatch{
		{ID: "1", Score: 0.9, Fund: "Garfield", Source: domain.PartitionHoldings, Text: "Security: MSFT"},
		{ID: "2", Score: 0.7, Fund: "Heather", Source: domain.PartitionHoldings, Text: "Security: GOOG"},
		{ID: "3", Score: 0.5, Fund: "Platpot", Source: domain.PartitionHoldings, Text: "Security: TSLA"},
	}
}

func TestAnswerAggregationUsesAggregationPrompt(t *testing.T) {
	gen := &generatorFake{reply: "Heather performed best with $200.00 yearly P&L."}
	assembler := newTestAssembler(testDataset(), &retrieveSearcherFake{}, gen)

	answer, err := assembler.Answer(context.Background(), "Which fund performed best this year?", 0)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.QueryType != domain.QueryClassAggregation {
		t.Fatalf("query type = %q, want aggregation", answer.QueryType)
	}
	if answer.Text != gen.reply {
		t.Fatalf("answer = %q", answer.Text)
	}
	if !strings.Contains(gen.prompt, "COMPLETE Fund Performance Rankings") {
		t.Fatalf("prompt does not carry the aggregation report:\n%s", gen.prompt)
	}
}

func TestAnswerSpecificUsesSpecificPrompt(t *testing.T) {
	gen := &generatorFake{reply: "Garfield holds MSFT according to the retrieved data."}
	assembler := newTestAssembler(testDataset(), &retrieveSearcherFake{matches: specificMatches()}, gen)

	answer, err := assembler.Answer(context.Background(), "Tell me about MSFT", 0)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.QueryType != domain.QueryClassSpecific {
		t.Fatalf("query type = %q, want specific", answer.QueryType)
	}
	if !strings.Contains(gen.prompt, "=== Chunk 1") {
		t.Fatalf("prompt does not carry the retrieved chunks:\n%s", gen.prompt)
	}
}

// Retrieval failure is the only path that sets Answer.Error; generation
// must never run on it.
func TestAnswerFailsClosedOnRetrievalFailure(t *testing.T) {
	gen := &generatorFake{reply: "should never be produced"}
	assembler := newTestAssembler(testDataset(), &retrieveSearcherFake{}, gen)

	answer, err := assembler.Answer(context.Background(), "Tell me about MSFT", 0)
	if !domain.IsKind(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if answer.Text != domain.RefusalMessage || answer.Error != domain.RefusalMessage {
		t.Fatalf("answer = %+v, want refusal", answer)
	}
	if gen.calls != 0 {
		t.Fatalf("generator called %d times after retrieval failure", gen.calls)
	}
}

func TestAnswerBlankQuestion(t *testing.T) {
	gen := &generatorFake{}
	assembler := newTestAssembler(testDataset(), &retrieveSearcherFake{}, gen)

	answer, err := assembler.Answer(context.Background(), "   \n\t", 0)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if answer.Text != domain.RefusalMessage {
		t.Fatalf("answer = %q, want refusal", answer.Text)
	}
	if gen.calls != 0 {
		t.Fatalf("generator called for a blank question")
	}
}

func TestAnswerGenerationFailureMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "rate limited",
			err:  domain.WrapError(domain.ErrRateLimited, "generate", errors.New("429")),
			want: "API rate limit exceeded. Please wait a moment and try again.",
		},
		{
			name: "bad credentials",
			err:  domain.WrapError(domain.ErrInvalidCredentials, "generate", errors.New("401")),
			want: "Invalid API credentials. Please check the generation service configuration.",
		},
		{
			name: "other",
			err:  errors.New("upstream timeout"),
			want: "Error generating answer: upstream timeout",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &generatorFake{err: tc.err}
			assembler := newTestAssembler(testDataset(), &retrieveSearcherFake{matches: specificMatches()}, gen)

			answer, err := assembler.Answer(context.Background(), "Tell me about MSFT", 0)
			if err != nil {
				t.Fatalf("generation failure must not surface as an error, got %v", err)
			}
			if answer.Text != tc.want {
				t.Fatalf("answer = %q, want %q", answer.Text, tc.want)
			}
			if answer.Error != "" {
				t.Fatalf("Error field set on a degraded answer: %q", answer.Error)
			}
		})
	}
}

func TestAnswerShortOutputBecomesRefusal(t *testing.T) {
	gen := &generatorFake{reply: "ok"}
	assembler := newTestAssembler(testDataset(), &retrieveSearcherFake{matches: specificMatches()}, gen)

	answer, err := assembler.Answer(context.Background(), "Tell me about MSFT", 0)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != domain.RefusalMessage {
		t.Fatalf("answer = %q, want refusal", answer.Text)
	}
}

func TestAnswerRefusalFromModelIsKept(t *testing.T) {
	gen := &generatorFake{reply: "Sorry, I cannot find that."}
	assembler := newTestAssembler(testDataset(), &retrieveSearcherFake{matches: specificMatches()}, gen)

	answer, err := assembler.Answer(context.Background(), "Tell me about MSFT", 0)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "Sorry, I cannot find that." {
		t.Fatalf("answer = %q", answer.Text)
	}
}
