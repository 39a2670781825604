package answer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yakgwan-ai/yakgwan/internal/store"
)

// MaxAttempts bounds the generate-validate loop: one initial generation
// plus two regenerations.
const MaxAttempts = 3

// Canned responses for degenerate inputs.
const (
	noResultsAnswer = "죄송합니다. 질문하신 내용과 관련된 약관 정보를 찾을 수 없습니다.\n" +
		"다른 표현으로 다시 질문하시거나, 더 구체적인 키워드를 사용해주세요."
)

// Response is the answering stage's outcome.
type Response struct {
	Answer     string
	Validation *Report
	NoResults  bool
	Failed     bool
}

// Answerer runs the bounded generate-validate loop.
type Answerer struct {
	generator *Generator
	validator *Validator
	logger    *slog.Logger
}

// NewAnswerer wires the generator and validator.
func NewAnswerer(generator *Generator, validator *Validator, logger *slog.Logger) *Answerer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{generator: generator, validator: validator, logger: logger}
}

// Answer produces a validated answer for query over results. searchErr,
// when non-nil, short-circuits into an apology. Low-confidence answers
// are regenerated up to MaxAttempts; the last attempt is returned
// regardless of its score.
func (a *Answerer) Answer(ctx context.Context, query string, results []store.SearchResult, searchErr error) Response {
	if searchErr != nil {
		a.logger.Warn("search stage failed, returning apology", "error", searchErr)
		return Response{
			Answer: fmt.Sprintf("죄송합니다. %s", searchErr.Error()),
			Failed: true,
		}
	}

	if len(results) == 0 {
		a.logger.Info("no search results, returning canned response")
		return Response{Answer: noResultsAnswer, NoResults: true}
	}

	// The context is assembled once; regeneration reuses it.
	refContext := BuildContext(results)

	var lastErr error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		a.logger.Info("generating answer", "attempt", attempt+1, "max_attempts", MaxAttempts)

		text, err := a.generator.Generate(ctx, query, refContext)
		if err != nil {
			lastErr = err
			a.logger.Error("generation attempt failed", "attempt", attempt+1, "error", err)
			continue
		}

		report := a.validator.Validate(ctx, text, results)
		report.RegenerationCount = attempt

		if report.IsReliable || attempt == MaxAttempts-1 {
			if !report.IsReliable {
				a.logger.Warn("returning low-confidence answer after final attempt",
					"confidence", report.ConfidenceScore,
					"regenerations", attempt)
			}
			return Response{Answer: text, Validation: &report}
		}

		a.logger.Warn("answer below confidence threshold, regenerating",
			"confidence", report.ConfidenceScore,
			"attempt", attempt+1)
	}

	a.logger.Error("all generation attempts failed", "error", lastErr)
	return Response{
		Answer: fmt.Sprintf("죄송합니다. 답변 생성 중 오류가 발생했습니다: %v", lastErr),
		Failed: true,
	}
}
