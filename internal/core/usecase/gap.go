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
	gapCheckMaxTokens  = 300
	gapCheckMaxRows    = 6
	gapCheckExcerptLen = 200
	gapMinSignalHits   = 2
	gapLLMMaxVariants  = 3
	gapHeuristicSource = "heuristic"
	gapLLMSource       = "gap_llm"
)

// GapDetector decides after round 1 whether a broadened second retrieval
// round is warranted. The final verdict is the OR of the heuristic and the
// optional LLM check, so a provider outage can never suppress escalation the
// heuristic would have requested.
type GapDetector struct {
	generator   ports.TextGenerator
	llmEnabled  bool
	topK        int
	maxVariants int
	logger      *slog.Logger
}

func NewGapDetector(generator ports.TextGenerator, llmEnabled bool, topK, maxVariants int, logger *slog.Logger) *GapDetector {
	if topK <= 0 {
		topK = 8
	}
	if maxVariants <= 0 {
		maxVariants = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GapDetector{
		generator:   generator,
		llmEnabled:  llmEnabled,
		topK:        topK,
		maxVariants: maxVariants,
		logger:      logger,
	}
}

// Decide returns the second-pass decision and, when escalation is signaled,
// the query variants for round 2.
func (g *GapDetector) Decide(
	ctx context.Context,
	question string,
	questionType domain.QuestionType,
	evidenceNeeds []string,
	rows []domain.EvidenceRow,
) (domain.SecondPassDecision, []string) {
	heuristicNeeded, heuristicReason := g.heuristicInsufficient(questionType, rows)
	heuristicQueries := sanitizeVariants(question, escalationVariants(question, evidenceNeeds), g.maxVariants)

	if g.llmEnabled && g.generator != nil {
		verdict, err := g.checkWithLLM(ctx, question, questionType, rows)
		if err != nil {
			g.logger.Warn("gap_check_llm_fallback", "error", err)
		} else if verdict.NeedsSecondPass {
			queries := sanitizeVariants(question, filterEcosystemTerms(question, verdict.QueryVariants), g.maxVariants)
			if len(queries) <= 1 && heuristicNeeded {
				queries = heuristicQueries
			}
			reason := strings.TrimSpace(verdict.Reason)
			if reason == "" {
				reason = "llm flagged retrieval gap"
			}
			return domain.SecondPassDecision{Needed: true, Reason: reason, Source: gapLLMSource}, queries
		}
	}

	if heuristicNeeded {
		return domain.SecondPassDecision{Needed: true, Reason: heuristicReason, Source: gapHeuristicSource}, heuristicQueries
	}
	return domain.SecondPassDecision{Needed: false, Reason: "round 1 evidence judged sufficient", Source: gapHeuristicSource}, nil
}

func (g *GapDetector) heuristicInsufficient(questionType domain.QuestionType, rows []domain.EvidenceRow) (bool, string) {
	if questionType != domain.QuestionProcedural {
		if len(rows) == 0 {
			return true, "no evidence retrieved in round 1"
		}
		return false, ""
	}

	floor := g.topK / 2
	if floor < 3 {
		floor = 3
	}
	if len(rows) < floor {
		return true, fmt.Sprintf("procedural question with %d rows, below floor %d", len(rows), floor)
	}
	if countSignalHits(rows) < gapMinSignalHits {
		return true, "procedural question without command or config evidence"
	}
	return false, ""
}

// countSignalHits counts command and config-assignment matches across rows.
func countSignalHits(rows []domain.EvidenceRow) int {
	hits := 0
	for _, row := range rows {
		if commandPattern.MatchString(row.ChunkText) {
			hits++
		}
		if configPattern.MatchString(row.ChunkText) {
			hits++
		}
	}
	return hits
}

func escalationVariants(question string, evidenceNeeds []string) []string {
	variants := []string{
		question + " exact commands",
		question + " configuration keys file paths",
		question + " verification steps",
	}
	if len(evidenceNeeds) > 0 {
		variants = append(variants, question+" "+strings.Join(evidenceNeeds, " "))
	}
	return variants
}

type gapCheckResponse struct {
	NeedsSecondPass bool     `json:"needs_second_pass"`
	Reason          string   `json:"reason"`
	QueryVariants   []string `json:"query_variants"`
}

func (g *GapDetector) checkWithLLM(
	ctx context.Context,
	question string,
	questionType domain.QuestionType,
	rows []domain.EvidenceRow,
) (gapCheckResponse, error) {
	var summary strings.Builder
	for i, row := range rows {
		if i == gapCheckMaxRows {
			break
		}
		rowText := excerpt(normalizeText(row.ChunkText), gapCheckExcerptLen)
		fmt.Fprintf(&summary, "- source=%s type=%s: %s\n", row.SourceName, row.ChunkType, rowText)
	}
	if summary.Len() == 0 {
		summary.WriteString("(no rows retrieved)\n")
	}

	prompt := fmt.Sprintf(`Judge whether the retrieved evidence below suffices to answer the question.
Return ONLY a valid JSON object:
{"needs_second_pass":true|false,"reason":"...","query_variants":["...","...","..."]}
At most %d query variants. No markdown, no extra keys.

Question (%s):
%s

Retrieved evidence:
%s`, gapLLMMaxVariants, questionType, question, summary.String())

	raw, err := g.generator.Generate(ctx, "You audit retrieval sufficiency for a knowledge assistant.", prompt, gapCheckMaxTokens)
	if err != nil {
		return gapCheckResponse{}, fmt.Errorf("gap check generate: %w", err)
	}

	var resp gapCheckResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &resp); err != nil {
		return gapCheckResponse{}, fmt.Errorf("decode gap check json: %w", err)
	}
	if len(resp.QueryVariants) > gapLLMMaxVariants {
		resp.QueryVariants = resp.QueryVariants[:gapLLMMaxVariants]
	}
	return resp, nil
}
