package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/contextforge/contextforge/internal/core/domain"
	"github.com/contextforge/contextforge/internal/core/ports"
)

const traceTopChunkIDs = 5

const outOfScopeAnswer = "I could not find relevant indexed sources, and this request appears outside the scope " +
	"of ContextForge (company knowledge and related domain topics)."

// AskLimits bounds one ask request.
type AskLimits struct {
	TopK              int
	RoundBudget       int
	MaxQueryVariants  int
	SecondPassEnabled bool
	ExpansionEnabled  bool
	AnswerMaxTokens   int
}

func (l AskLimits) normalize() AskLimits {
	if l.TopK <= 0 {
		l.TopK = 8
	}
	if l.RoundBudget <= 0 {
		l.RoundBudget = 2
	}
	if l.MaxQueryVariants <= 0 {
		l.MaxQueryVariants = 5
	}
	if l.AnswerMaxTokens <= 0 {
		l.AnswerMaxTokens = 700
	}
	return l
}

// AskUseCase sequences planning, the bounded two-round retrieval protocol,
// reranking, optional context expansion, answer synthesis, and history
// persistence for one question.
type AskUseCase struct {
	planner   *Planner
	semantic  *EmbeddingRetriever
	lexical   *LexicalRetriever
	gaps      *GapDetector
	expander  *ContextExpander
	generator ports.TextGenerator
	users     ports.UserStore
	history   ports.HistoryWriter
	assets    ports.AssetURLResolver
	limits    AskLimits
	logger    *slog.Logger
}

func NewAskUseCase(
	planner *Planner,
	semantic *EmbeddingRetriever,
	lexical *LexicalRetriever,
	gaps *GapDetector,
	expander *ContextExpander,
	generator ports.TextGenerator,
	users ports.UserStore,
	history ports.HistoryWriter,
	assets ports.AssetURLResolver,
	limits AskLimits,
	logger *slog.Logger,
) *AskUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AskUseCase{
		planner:   planner,
		semantic:  semantic,
		lexical:   lexical,
		gaps:      gaps,
		expander:  expander,
		generator: generator,
		users:     users,
		history:   history,
		assets:    assets,
		limits:    limits.normalize(),
		logger:    logger,
	}
}

func (uc *AskUseCase) Ask(ctx context.Context, req domain.AskRequest) (*domain.AskResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("question is required"))
	}

	userID := ""
	if uc.users != nil && strings.TrimSpace(req.UserEmail) != "" {
		id, err := uc.users.EnsureUser(ctx, req.UserEmail, req.UserFullName)
		if err != nil {
			return nil, fmt.Errorf("ensure user: %w", err)
		}
		userID = id
	}

	plan := uc.planner.Plan(ctx, question)
	trace := domain.RetrievalTrace{
		QuestionType:  plan.QuestionType,
		EvidenceNeeds: plan.EvidenceNeeds,
		PlannerSource: plan.Source,
	}

	queries := sanitizeVariants(question, plan.QueryVariants, uc.limits.MaxQueryVariants)
	embeddingRows, keywordRows, err := uc.runRound(ctx, queries, false)
	if err != nil {
		return nil, fmt.Errorf("retrieval round 1: %w", err)
	}

	merged := mergeEvidence(embeddingRows, keywordRows, uc.limits.TopK, false)
	ranked := rerankEvidence(merged, question, plan.QuestionType, uc.limits.TopK)
	round1Found := len(ranked) > 0
	trace.Rounds = append(trace.Rounds, roundTrace(1, false, queries, ranked))

	secondRoundRan := false
	if uc.limits.RoundBudget >= 2 && uc.limits.SecondPassEnabled && uc.gaps != nil {
		decision, escalation := uc.gaps.Decide(ctx, question, plan.QuestionType, plan.EvidenceNeeds, ranked)
		trace.SecondPass = &decision

		if decision.Needed && len(escalation) > 0 {
			emb2, key2, err := uc.runRound(ctx, escalation, true)
			if err != nil {
				return nil, fmt.Errorf("retrieval round 2: %w", err)
			}
			merged = mergeEvidence(append(embeddingRows, emb2...), append(keywordRows, key2...), uc.limits.TopK, true)
			ranked = rerankEvidence(merged, question, plan.QuestionType, uc.limits.TopK)
			trace.Rounds = append(trace.Rounds, roundTrace(2, true, escalation, ranked))
			secondRoundRan = true
		}
	}

	ranked = uc.resolveImageURLs(ranked)
	rowsFound := len(ranked) > 0

	if uc.limits.ExpansionEnabled && req.ExpandContext && uc.expander != nil {
		expanded, expansions, err := uc.expander.Expand(ctx, question, ranked)
		if err != nil {
			return nil, fmt.Errorf("context expansion: %w", err)
		}
		ranked = expanded
		trace.Expansions = expansions
	}

	mode := uc.classifyOutcome(question, round1Found, rowsFound, secondRoundRan)
	confidence := confidenceForMode(mode)
	outcome := domain.OutcomeNone
	if rowsFound {
		outcome = domain.OutcomeFound
	}

	answer, err := uc.synthesizeAnswer(ctx, question, ranked, mode)
	if err != nil {
		return nil, err
	}

	result := &domain.AskResult{
		Question:          question,
		Answer:            answer,
		ConfidencePercent: confidence,
		Grounded:          rowsFound,
		FallbackMode:      mode,
		RetrievalOutcome:  outcome,
		WebpageLinks:      collectWebpageLinks(ranked),
		Rows:              ranked,
		Trace:             trace,
	}

	if uc.history != nil {
		if err := uc.history.SaveAsk(ctx, historyEntry(userID, req, result)); err != nil {
			return nil, fmt.Errorf("persist ask history: %w", err)
		}
	}
	return result, nil
}

// runRound invokes both leaf retrievers once per query variant and
// accumulates all rows for merging.
func (uc *AskUseCase) runRound(ctx context.Context, queries []string, broaden bool) (embedding, keyword []domain.EvidenceRow, err error) {
	for _, query := range queries {
		embRows, err := uc.semantic.Retrieve(ctx, query, broaden)
		if err != nil {
			return nil, nil, err
		}
		embedding = append(embedding, embRows...)

		keyRows, err := uc.lexical.Retrieve(ctx, query, broaden)
		if err != nil {
			return nil, nil, err
		}
		keyword = append(keyword, keyRows...)
	}
	return embedding, keyword, nil
}

// classifyOutcome keeps mode "none" when the primary round already produced
// evidence, even if the gap detector escalated for more procedural signal.
func (uc *AskUseCase) classifyOutcome(question string, round1Found, rowsFound, secondRoundRan bool) domain.FallbackMode {
	if round1Found {
		return domain.FallbackNone
	}
	return classifyFallback(question, rowsFound, secondRoundRan)
}

func (uc *AskUseCase) synthesizeAnswer(ctx context.Context, question string, rows []domain.EvidenceRow, mode domain.FallbackMode) (string, error) {
	if mode == domain.FallbackOutOfScope {
		return outOfScopeAnswer, nil
	}

	answer, err := uc.generator.Generate(ctx, answerSystemPrompt, buildAnswerPrompt(question, rows, mode), uc.limits.AnswerMaxTokens)
	if err != nil {
		return "", domain.WrapError(domain.ErrProvider, "generate answer", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", domain.WrapError(domain.ErrProvider, "generate answer", fmt.Errorf("provider returned empty answer"))
	}
	return answer, nil
}

// resolveImageURLs attaches temporary URLs to image rows; rows whose asset
// cannot be resolved are omitted.
func (uc *AskUseCase) resolveImageURLs(rows []domain.EvidenceRow) []domain.EvidenceRow {
	if uc.assets == nil {
		return rows
	}
	out := rows[:0]
	for _, row := range rows {
		if row.ImageID != nil && row.ImageKey != "" {
			url, err := uc.assets.URL(row.ImageKey)
			if err != nil {
				uc.logger.Warn("image_url_unresolved", "image_id", *row.ImageID, "error", err)
				continue
			}
			row.ImageURL = url
		}
		out = append(out, row)
	}
	return out
}

func roundTrace(round int, broaden bool, queries []string, ranked []domain.EvidenceRow) domain.RoundTrace {
	top := make([]string, 0, traceTopChunkIDs)
	for _, row := range ranked {
		if len(top) == traceTopChunkIDs {
			break
		}
		top = append(top, rowIdentity(row))
	}
	return domain.RoundTrace{
		Round:       round,
		Broaden:     broaden,
		Queries:     queries,
		ResultCount: len(ranked),
		TopChunkIDs: top,
	}
}

func collectWebpageLinks(rows []domain.EvidenceRow) []string {
	links := make([]string, 0, len(rows))
	seen := make(map[string]struct{})
	for _, row := range rows {
		if row.SourceType != domain.SourceWeb || row.SourceURL == "" {
			continue
		}
		if _, dup := seen[row.SourceURL]; dup {
			continue
		}
		seen[row.SourceURL] = struct{}{}
		links = append(links, row.SourceURL)
	}
	return links
}

func historyEntry(userID string, req domain.AskRequest, result *domain.AskResult) *domain.AskHistoryEntry {
	documents := make([]domain.DocumentUsage, 0, len(result.Rows))
	seenDocs := make(map[string]struct{})
	chunks := make([]string, 0, len(result.Rows))
	images := make([]string, 0)
	for _, row := range result.Rows {
		if row.ChunkID != nil {
			chunks = append(chunks, *row.ChunkID)
		}
		if row.ImageID != nil {
			images = append(images, *row.ImageID)
		}
		if row.DocumentID == "" {
			continue
		}
		if _, dup := seenDocs[row.DocumentID]; dup {
			continue
		}
		seenDocs[row.DocumentID] = struct{}{}
		documents = append(documents, domain.DocumentUsage{
			DocumentID: row.DocumentID,
			SourceName: row.SourceName,
			SourceType: row.SourceType,
		})
	}

	return &domain.AskHistoryEntry{
		ID:                uuid.NewString(),
		UserID:            userID,
		UserEmail:         req.UserEmail,
		Question:          result.Question,
		Answer:            result.Answer,
		ConversationID:    req.ConversationID,
		DocumentsUsed:     documents,
		ChunksUsed:        chunks,
		ImagesUsed:        images,
		WebpageLinks:      result.WebpageLinks,
		ConfidencePercent: result.ConfidencePercent,
		Grounded:          result.Grounded,
		RetrievalOutcome:  result.RetrievalOutcome,
		FallbackMode:      result.FallbackMode,
		Trace:             result.Trace,
		CreatedAt:         time.Now().UTC(),
	}
}
