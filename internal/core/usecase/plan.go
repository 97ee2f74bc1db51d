package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/contextforge/contextforge/internal/core/domain"
	"github.com/contextforge/contextforge/internal/core/ports"
)

const (
	minVariantLength  = 3
	plannerMaxTokens  = 400
	plannerSystemRole = "You are a retrieval query planner for an enterprise knowledge assistant."
)

var proceduralHints = []string{
	"how do i", "how to", "install", "configure", "set up", "setup",
	"deploy", "upgrade", "enable", "disable", "migrate", "restart",
}

var troubleshootingHints = []string{
	"error", "fail", "failing", "fails", "issue", "broken", "crash", "not working",
}

// packageManagerTerms are filtered out of LLM-proposed variants unless the
// question itself mentions them, so the planner cannot steer retrieval toward
// an ecosystem the user never asked about.
var packageManagerTerms = []string{
	"apt", "apt-get", "yum", "dnf", "brew", "homebrew", "pip", "npm", "pacman", "snap",
}

// Planner classifies the question and produces the query variants that drive
// both leaf retrievers. The LLM path is optional; any failure there falls
// back to the heuristic plan and never reaches the caller.
type Planner struct {
	generator   ports.TextGenerator
	llmEnabled  bool
	maxVariants int
	logger      *slog.Logger
}

func NewPlanner(generator ports.TextGenerator, llmEnabled bool, maxVariants int, logger *slog.Logger) *Planner {
	if maxVariants <= 0 {
		maxVariants = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		generator:   generator,
		llmEnabled:  llmEnabled,
		maxVariants: maxVariants,
		logger:      logger,
	}
}

func (p *Planner) Plan(ctx context.Context, question string) domain.QueryPlan {
	heuristic := heuristicPlan(question, p.maxVariants)
	if !p.llmEnabled || p.generator == nil {
		return heuristic
	}

	plan, err := p.planWithLLM(ctx, question)
	if err != nil {
		p.logger.Warn("planner_llm_fallback", "error", err)
		heuristic.Source = domain.PlanHeuristicFallback
		return heuristic
	}
	return plan
}

func classifyQuestion(question string) domain.QuestionType {
	q := strings.ToLower(question)
	for _, hint := range proceduralHints {
		if strings.Contains(q, hint) {
			return domain.QuestionProcedural
		}
	}
	if strings.Contains(q, "difference") || strings.Contains(q, "compare") ||
		strings.Contains(q, " vs ") || strings.Contains(q, "versus") {
		return domain.QuestionComparison
	}
	if strings.Contains(q, "why") || strings.Contains(q, "what is") || strings.Contains(q, "what are") {
		return domain.QuestionConceptual
	}
	for _, hint := range troubleshootingHints {
		if strings.Contains(q, hint) {
			return domain.QuestionTroubleshooting
		}
	}
	return domain.QuestionOther
}

func evidenceNeedsFor(questionType domain.QuestionType) []string {
	switch questionType {
	case domain.QuestionProcedural:
		return []string{"step-by-step instructions with commands and config paths"}
	case domain.QuestionComparison:
		return []string{"differences and tradeoffs between the named options"}
	case domain.QuestionConceptual:
		return []string{"definitions and conceptual explanations"}
	case domain.QuestionTroubleshooting:
		return []string{"known error causes and fixes"}
	default:
		return []string{"relevant reference material"}
	}
}

func heuristicPlan(question string, maxVariants int) domain.QueryPlan {
	questionType := classifyQuestion(question)
	needs := evidenceNeedsFor(questionType)

	variants := []string{question}
	switch questionType {
	case domain.QuestionProcedural:
		variants = append(variants, question+" step by step", question+" commands config paths verification")
	case domain.QuestionComparison:
		variants = append(variants, question+" differences tradeoffs")
	case domain.QuestionConceptual:
		variants = append(variants, question+" overview explanation")
	case domain.QuestionTroubleshooting:
		variants = append(variants, question+" error cause fix")
	default:
		variants = append(variants, question+" documentation")
	}
	variants = append(variants, question+" "+strings.Join(needs, " "))

	return domain.QueryPlan{
		QuestionType:  questionType,
		EvidenceNeeds: needs,
		QueryVariants: sanitizeVariants(question, variants, maxVariants),
		Source:        domain.PlanHeuristic,
	}
}

type plannerResponse struct {
	QuestionType  string   `json:"question_type"`
	EvidenceNeeds []string `json:"evidence_needs"`
	QueryVariants []string `json:"query_variants"`
}

func (p *Planner) planWithLLM(ctx context.Context, question string) (domain.QueryPlan, error) {
	prompt := fmt.Sprintf(`Classify the question and propose retrieval query variants.
Return ONLY a valid JSON object:
{"question_type":"procedural|conceptual|comparison|troubleshooting|other","evidence_needs":["..."],"query_variants":["..."]}
No markdown, no extra keys.

Question:
%s`, question)

	raw, err := p.generator.Generate(ctx, plannerSystemRole, prompt, plannerMaxTokens)
	if err != nil {
		return domain.QueryPlan{}, fmt.Errorf("planner generate: %w", err)
	}

	var resp plannerResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &resp); err != nil {
		return domain.QueryPlan{}, fmt.Errorf("decode planner json: %w", err)
	}

	questionType, ok := domain.ParseQuestionType(strings.ToLower(strings.TrimSpace(resp.QuestionType)))
	if !ok {
		return domain.QueryPlan{}, fmt.Errorf("planner returned unknown question type %q", resp.QuestionType)
	}

	needs := make([]string, 0, len(resp.EvidenceNeeds))
	for _, need := range resp.EvidenceNeeds {
		need = strings.TrimSpace(need)
		if need != "" {
			needs = append(needs, need)
		}
	}
	if len(needs) == 0 {
		needs = evidenceNeedsFor(questionType)
	}

	variants := filterEcosystemTerms(question, resp.QueryVariants)
	return domain.QueryPlan{
		QuestionType:  questionType,
		EvidenceNeeds: needs,
		QueryVariants: sanitizeVariants(question, variants, p.maxVariants),
		Source:        domain.PlanLLM,
	}, nil
}

// sanitizeVariants trims, drops trivial strings, deduplicates case
// insensitively, guarantees the original question leads the list, and caps
// the count.
func sanitizeVariants(question string, variants []string, maxVariants int) []string {
	if maxVariants <= 0 {
		maxVariants = 5
	}

	out := make([]string, 0, maxVariants)
	seen := make(map[string]struct{})
	admit := func(v string) {
		v = strings.TrimSpace(v)
		if len(v) < minVariantLength {
			return
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			return
		}
		if len(out) == maxVariants {
			return
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}

	admit(question)
	for _, v := range variants {
		admit(v)
	}
	if len(out) == 0 {
		out = append(out, question)
	}
	return out
}

func filterEcosystemTerms(question string, variants []string) []string {
	q := strings.ToLower(question)
	out := make([]string, 0, len(variants))
	for _, variant := range variants {
		v := strings.ToLower(variant)
		drop := false
		for _, term := range packageManagerTerms {
			if containsWord(v, term) && !containsWord(q, term) {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, variant)
		}
	}
	return out
}

func containsWord(haystack, word string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordRune(haystack[start-1])
		afterOK := end == len(haystack) || !isWordRune(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordRune(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
