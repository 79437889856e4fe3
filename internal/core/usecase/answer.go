package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ovolkov/fund-insight/internal/core/domain"
	"github.com/ovolkov/fund-insight/internal/core/ports"
)

var errBlankQuestion = errors.New("blank question")

// AnswerAssembler is the outer pipeline: retrieve context, select the
// prompt template for the routed class, call the generator once, and
// sanitize the output. Nothing in it is fatal to the process; every
// failure path returns a structured Answer.
type AnswerAssembler struct {
	retrieval *HybridRetrieval
	generator ports.Generator
}

func NewAnswerAssembler(retrieval *HybridRetrieval, generator ports.Generator) *AnswerAssembler {
	return &AnswerAssembler{
		retrieval: retrieval,
		generator: generator,
	}
}

// Answer produces the final result for one question. The returned error is
// populated only when retrieval failed; in that case Text already carries
// the user-visible refusal and no generation call was made.
func (a *AnswerAssembler) Answer(ctx context.Context, question string, topK int) (domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		err := domain.WrapError(domain.ErrInvalidInput, "answer", errBlankQuestion)
		return domain.Answer{
			Text:      domain.RefusalMessage,
			QueryType: domain.QueryClassSpecific,
			Error:     domain.RefusalMessage,
		}, err
	}

	routed, err := a.retrieval.RetrieveContext(ctx, question, topK)
	if err != nil {
		// Fail closed: the refusal is the answer, generation is skipped.
		return domain.Answer{
			Text:      domain.RefusalMessage,
			QueryType: routed.Class,
			Error:     domain.RefusalMessage,
		}, err
	}

	prompt, err := promptFor(routed.Class).Fill(map[string]string{
		"context":  routed.Context,
		"question": question,
	})
	if err != nil {
		return domain.Answer{
			Text:      domain.RefusalMessage,
			QueryType: routed.Class,
			Error:     domain.RefusalMessage,
		}, domain.WrapError(domain.ErrInvalidInput, "fill prompt", err)
	}

	genStart := time.Now()
	raw, err := a.generator.Generate(ctx, prompt)
	genTime := time.Since(genStart)
	if err != nil {
		// Generation failures are degraded answers, not errors: the
		// consumer still gets a well-formed result.
		return domain.Answer{
			Text:            describeGenerationFailure(err),
			QueryType:       routed.Class,
			RetrievedChunks: routed.Stats.Matches,
			GenerationTime:  genTime,
		}, nil
	}

	text := SanitizeText(raw)
	if !answerLooksValid(text) {
		text = domain.RefusalMessage
	}
	return domain.Answer{
		Text:            text,
		QueryType:       routed.Class,
		RetrievedChunks: routed.Stats.Matches,
		GenerationTime:  genTime,
	}, nil
}

func promptFor(class domain.QueryClass) PromptTemplate {
	if class == domain.QueryClassAggregation {
		return AggregationPrompt
	}
	return SpecificPrompt
}

// answerLooksValid is the minimal sanity gate on generated text: the
// canonical refusal is a valid answer, anything shorter than a sentence
// fragment is not.
func answerLooksValid(answer string) bool {
	lower := strings.ToLower(answer)
	if strings.Contains(lower, "sorry") && strings.Contains(lower, "cannot find") {
		return true
	}
	return len(strings.TrimSpace(answer)) >= 10
}

func describeGenerationFailure(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrRateLimited):
		return "API rate limit exceeded. Please wait a moment and try again."
	case domain.IsKind(err, domain.ErrInvalidCredentials):
		return "Invalid API credentials. Please check the generation service configuration."
	default:
		return "Error generating answer: " + err.Error()
	}
}
