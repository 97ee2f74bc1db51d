package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/contextforge/contextforge/internal/core/domain"
	"github.com/contextforge/contextforge/internal/core/ports"
)

// technicalNamePattern matches identifiers like config keys, module names and
// file stems (dotted, dashed or underscored). Lexical hits containing them
// get a score bonus because they usually carry the answer verbatim.
var technicalNamePattern = regexp.MustCompile(`[A-Za-z0-9]+(?:[._-][A-Za-z0-9]+)+`)

// EmbeddingRetriever is the semantic leaf: one query embedding, one
// nearest-neighbor search per modality. Provider failures degrade to an
// empty result; data-store failures propagate.
type EmbeddingRetriever struct {
	embedder      ports.Embedder
	vectors       ports.VectorIndex
	topK          int
	maxCandidates int
	logger        *slog.Logger
}

func NewEmbeddingRetriever(embedder ports.Embedder, vectors ports.VectorIndex, topK, maxCandidates int, logger *slog.Logger) *EmbeddingRetriever {
	if topK <= 0 {
		topK = 8
	}
	if maxCandidates <= 0 {
		maxCandidates = 48
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingRetriever{
		embedder:      embedder,
		vectors:       vectors,
		topK:          topK,
		maxCandidates: maxCandidates,
		logger:        logger,
	}
}

func (r *EmbeddingRetriever) Retrieve(ctx context.Context, query string, broaden bool) ([]domain.EvidenceRow, error) {
	if r.embedder == nil || r.vectors == nil {
		return nil, nil
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		r.logger.Warn("embedding_retriever_soft_fail", "error", err)
		return nil, nil
	}
	if len(vector) == 0 {
		return nil, nil
	}

	limit := boundedCandidateLimit(3*r.topK, r.maxCandidates)
	rows := make([]domain.EvidenceRow, 0, 2*limit)
	for _, modality := range []domain.Modality{domain.ModalityText, domain.ModalityImageCaption} {
		hits, err := r.vectors.SearchNearest(ctx, vector, modality, limit)
		if err != nil {
			return nil, fmt.Errorf("vector search %s: %w", modality, err)
		}
		for _, hit := range hits {
			row := hit.Row
			row.Similarity = 1 - hit.Distance
			rows = append(rows, row)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Similarity > rows[j].Similarity
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// LexicalRetriever is the keyword leaf: substring matching with a per-row
// match-count score across both modalities.
type LexicalRetriever struct {
	chunks        ports.ChunkStore
	topK          int
	maxCandidates int
}

func NewLexicalRetriever(chunks ports.ChunkStore, topK, maxCandidates int) *LexicalRetriever {
	if topK <= 0 {
		topK = 8
	}
	if maxCandidates <= 0 {
		maxCandidates = 48
	}
	return &LexicalRetriever{
		chunks:        chunks,
		topK:          topK,
		maxCandidates: maxCandidates,
	}
}

func (r *LexicalRetriever) Retrieve(ctx context.Context, query string, broaden bool) ([]domain.EvidenceRow, error) {
	tokens := tokenizeQuestion(query, broaden)
	if len(tokens) == 0 {
		return nil, nil
	}

	limit := boundedCandidateLimit(4*r.topK, r.maxCandidates)
	hits := make([]domain.LexicalHit, 0, 2*limit)
	for _, modality := range []domain.Modality{domain.ModalityText, domain.ModalityImageCaption} {
		found, err := r.chunks.SearchSubstring(ctx, tokens, modality, limit)
		if err != nil {
			return nil, fmt.Errorf("lexical search %s: %w", modality, err)
		}
		hits = append(hits, found...)
	}

	type scored struct {
		row   domain.EvidenceRow
		score int
	}
	candidates := make([]scored, 0, len(hits))
	for _, hit := range hits {
		score := hit.MatchCount
		if technicalNamePattern.MatchString(hit.Row.ChunkText) {
			score++
		}
		row := hit.Row
		row.Similarity = domain.UnscoredSimilarity
		candidates = append(candidates, scored{row: row, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return rowIdentity(candidates[i].row) > rowIdentity(candidates[j].row)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]domain.EvidenceRow, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.row)
	}
	return out, nil
}

func rowIdentity(row domain.EvidenceRow) string {
	if row.ChunkID != nil {
		return *row.ChunkID
	}
	if row.ImageID != nil {
		return *row.ImageID
	}
	return row.DocumentID
}

func boundedCandidateLimit(want, absoluteMax int) int {
	if absoluteMax > 0 && want > absoluteMax {
		return absoluteMax
	}
	if want <= 0 {
		return 1
	}
	return want
}
