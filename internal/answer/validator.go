package answer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/yakgwan-ai/yakgwan/internal/llm"
	"github.com/yakgwan-ai/yakgwan/internal/store"
)

// Validation weights. Hallucination dominates; format is a tiebreaker.
const (
	WeightHallucination = 0.40
	WeightContext       = 0.30
	WeightClause        = 0.20
	WeightFormat        = 0.10

	// ReliabilityThreshold separates releasable answers from retries.
	ReliabilityThreshold = 0.7

	// validationContextLimit trims the source bundle sent to the
	// hallucination model.
	validationContextLimit = 1000
)

// CheckResult is one validation axis outcome.
type CheckResult struct {
	Name    string  `json:"check_name"`
	Passed  bool    `json:"passed"`
	Score   float64 `json:"score"`
	Details string  `json:"details"`
}

// Report is the full validation verdict attached to an answer.
type Report struct {
	ConfidenceScore   float64     `json:"confidence_score"`
	IsReliable        bool        `json:"is_reliable"`
	Hallucination     CheckResult `json:"hallucination_check"`
	ContextMatch      CheckResult `json:"context_match_check"`
	ClauseExistence   CheckResult `json:"clause_existence_check"`
	Format            CheckResult `json:"format_check"`
	RegenerationCount int         `json:"regeneration_count"`
	Warnings          []string    `json:"warnings,omitempty"`
	ValidationMS      int64       `json:"validation_ms"`
}

// Validator scores answers along the four axes. The store may be nil,
// degrading the clause-existence axis to a neutral score.
type Validator struct {
	client llm.Client
	model  string
	store  store.ChunkStore
	logger *slog.Logger
}

// NewValidator wires the validation model and clause store.
func NewValidator(client llm.Client, model string, st store.ChunkStore, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{client: client, model: model, store: st, logger: logger}
}

var (
	referenceRe = regexp.MustCompile(`\[참조\s*\d+\]`)
	clauseRe    = regexp.MustCompile(`제\s*(\d+)\s*조`)
	keywordRe   = regexp.MustCompile(`[가-힣a-zA-Z0-9]{3,}`)
)

// Validate runs the four checks in order: format, context match, clause
// existence, hallucination. The first two are local; the last two reach
// the database and the validation model sequentially.
func (v *Validator) Validate(ctx context.Context, answer string, results []store.SearchResult) Report {
	started := time.Now()

	format, warnings := v.checkFormat(answer, results)
	contextMatch := v.checkContextMatch(answer, results)
	clause, clauseWarning := v.checkClauseExistence(ctx, answer)
	if clauseWarning != "" {
		warnings = append(warnings, clauseWarning)
	}
	hallucination := v.checkHallucination(ctx, answer, results)

	confidence := hallucination.Score*WeightHallucination +
		contextMatch.Score*WeightContext +
		clause.Score*WeightClause +
		format.Score*WeightFormat
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	report := Report{
		ConfidenceScore: confidence,
		IsReliable:      confidence >= ReliabilityThreshold,
		Hallucination:   hallucination,
		ContextMatch:    contextMatch,
		ClauseExistence: clause,
		Format:          format,
		Warnings:        warnings,
		ValidationMS:    time.Since(started).Milliseconds(),
	}

	v.logger.Info("answer validated",
		"confidence", fmt.Sprintf("%.2f", confidence),
		"reliable", report.IsReliable,
		"elapsed_ms", report.ValidationMS)

	return report
}

// checkFormat verifies the two mandatory sections and at least one
// reference token. Clause numbers are tracked but optional.
func (v *Validator) checkFormat(answer string, results []store.SearchResult) (CheckResult, []string) {
	hasAnswerSection := strings.Contains(answer, "📌 답변")
	hasReferenceSection := strings.Contains(answer, "📋 관련 약관")
	hasStructure := hasAnswerSection && hasReferenceSection
	hasReferences := referenceRe.MatchString(answer)
	hasClauses := clauseRe.MatchString(answer)

	var warnings []string
	if !hasStructure {
		warnings = append(warnings, "structured sections missing")
	}
	if !hasReferences {
		warnings = append(warnings, "no reference tokens")
	}

	sourcesHaveClauses := false
	for _, r := range results {
		if r.ClauseNumber != "" {
			sourcesHaveClauses = true
			break
		}
	}
	if sourcesHaveClauses && !hasClauses {
		warnings = append(warnings, "sources carry clause numbers but the answer cites none")
	}

	passed := 0
	if hasStructure {
		passed++
	}
	if hasReferences {
		passed++
	}

	return CheckResult{
		Name:    "format",
		Passed:  hasStructure && hasReferences,
		Score:   float64(passed) / 2,
		Details: fmt.Sprintf("structure=%t references=%t clauses=%t", hasStructure, hasReferences, hasClauses),
	}, warnings
}

// checkContextMatch measures what fraction of the answer's keywords
// literally appear in the source contents.
func (v *Validator) checkContextMatch(answer string, results []store.SearchResult) CheckResult {
	keywords := extractKeywords(answer)
	if len(keywords) == 0 {
		return CheckResult{Name: "context_match", Passed: true, Score: 1.0, Details: "no keywords (n/a)"}
	}
	if len(results) == 0 {
		return CheckResult{Name: "context_match", Passed: false, Score: 0.0, Details: "no sources"}
	}

	var all strings.Builder
	for _, r := range results {
		all.WriteString(r.Content)
		all.WriteString(" ")
	}
	haystack := all.String()

	matched := 0
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			matched++
		}
	}

	score := float64(matched) / float64(len(keywords))
	return CheckResult{
		Name:    "context_match",
		Passed:  score >= 0.7,
		Score:   score,
		Details: fmt.Sprintf("%d/%d keywords matched", matched, len(keywords)),
	}
}

// checkClauseExistence verifies that clauses cited in the answer exist in
// active documents. When the store cannot answer, the axis degrades to a
// neutral score and the returned warning surfaces that in the report.
func (v *Validator) checkClauseExistence(ctx context.Context, answer string) (CheckResult, string) {
	clauses := extractClauseNumbers(answer)
	if len(clauses) == 0 {
		return CheckResult{Name: "clause_existence", Passed: true, Score: 1.0, Details: "no clauses cited (n/a)"}, ""
	}

	if v.store == nil {
		v.logger.Warn("no chunk store, clause existence unverifiable")
		return CheckResult{Name: "clause_existence", Passed: true, Score: 0.5, Details: "store unavailable"},
			"cited clauses unverified: store unavailable"
	}

	found, err := v.store.ExistingClauses(ctx, clauses)
	if err != nil {
		v.logger.Error("clause existence query failed", "error", err)
		return CheckResult{Name: "clause_existence", Passed: false, Score: 0.5, Details: "query failed"},
			"cited clauses unverified: existence query failed"
	}

	existing := 0
	var missing []string
	for _, cl := range clauses {
		if found[cl] {
			existing++
		} else {
			missing = append(missing, cl)
		}
	}

	score := float64(existing) / float64(len(clauses))
	details := fmt.Sprintf("%d/%d clauses exist", existing, len(clauses))
	if len(missing) > 0 {
		details += ", missing: " + strings.Join(missing, ", ")
	}

	return CheckResult{
		Name:    "clause_existence",
		Passed:  score >= 0.8,
		Score:   score,
		Details: details,
	}, ""
}

// hallucinationVerdict is the validation model's JSON reply.
type hallucinationVerdict struct {
	Grounded bool    `json:"grounded"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason"`
}

// checkHallucination asks the cheaper validation model whether the answer
// is grounded in the sources. Failures return a neutral 0.5 rather than
// blocking the answer.
func (v *Validator) checkHallucination(ctx context.Context, answer string, results []store.SearchResult) CheckResult {
	var parts []string
	for i, r := range results {
		parts = append(parts, fmt.Sprintf("[%d] %s", i+1, r.Content))
	}
	source := strings.Join(parts, "\n\n")
	if runes := []rune(source); len(runes) > validationContextLimit {
		source = string(runes[:validationContextLimit]) + "..."
	}

	user := fmt.Sprintf(`컨텍스트:
%s

답변:
%s

이 답변이 컨텍스트에 근거합니까? JSON 형식으로만 답변하세요:
{"grounded": true/false, "score": 0.0-1.0, "reason": "이유"}`, source, answer)

	resp, err := v.client.Complete(ctx, llm.Request{
		Model:       v.model,
		System:      "당신은 답변 검증 전문가입니다. 답변이 제공된 컨텍스트에만 근거하는지 확인하세요.",
		User:        user,
		Temperature: 0.0,
		MaxTokens:   200,
	})
	if err != nil {
		v.logger.Error("hallucination check failed, neutral score", "error", err)
		return CheckResult{Name: "hallucination", Passed: true, Score: 0.5, Details: "check unavailable"}
	}

	var verdict hallucinationVerdict
	if !llm.DecodeObject(resp, &verdict) {
		v.logger.Warn("hallucination verdict unparseable, neutral score")
		return CheckResult{Name: "hallucination", Passed: true, Score: 0.5, Details: "unparseable verdict"}
	}

	score := verdict.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	reason := verdict.Reason
	if runes := []rune(reason); len(runes) > 200 {
		reason = string(runes[:200])
	}

	return CheckResult{
		Name:    "hallucination",
		Passed:  verdict.Grounded,
		Score:   score,
		Details: reason,
	}
}

// extractClauseNumbers pulls normalized 제N조 citations, de-duplicated
// and sorted for stable reporting.
func extractClauseNumbers(answer string) []string {
	matches := clauseRe.FindAllStringSubmatch(answer, -1)
	seen := make(map[string]bool, len(matches))
	var clauses []string
	for _, m := range matches {
		cl := "제" + m[1] + "조"
		if !seen[cl] {
			seen[cl] = true
			clauses = append(clauses, cl)
		}
	}
	sort.Strings(clauses)
	return clauses
}

// extractKeywords pulls de-duplicated runs of 3+ word characters.
func extractKeywords(text string) []string {
	matches := keywordRe.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
