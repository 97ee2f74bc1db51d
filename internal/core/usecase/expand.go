package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/contextforge/contextforge/internal/core/domain"
	"github.com/contextforge/contextforge/internal/core/ports"
)

const truncationMarker = "\n\n[... truncated ...]\n\n"

// ContextExpander promotes whole-document text into the context set for the
// top-ranked documents. Oversized documents keep their head and tail around
// a truncation marker so prerequisites and verification steps both survive.
type ContextExpander struct {
	chunks     ports.ChunkStore
	maxDocs    int
	charBudget int
}

func NewContextExpander(chunks ports.ChunkStore, maxDocs, charBudget int) *ContextExpander {
	if maxDocs <= 0 {
		maxDocs = 2
	}
	if charBudget <= 0 {
		charBudget = 6000
	}
	return &ContextExpander{
		chunks:     chunks,
		maxDocs:    maxDocs,
		charBudget: charBudget,
	}
}

// Expand prepends synthetic full-document rows for the best-scoring
// documents. The synthetic rows bypass dedupe and source caps already
// applied upstream.
func (e *ContextExpander) Expand(
	ctx context.Context,
	question string,
	rows []domain.EvidenceRow,
) ([]domain.EvidenceRow, []domain.ExpansionTrace, error) {
	if len(rows) == 0 {
		return rows, nil, nil
	}

	type docScore struct {
		row   domain.EvidenceRow
		score float64
		named bool
	}
	best := make(map[string]docScore)
	order := make([]string, 0, len(rows))
	q := strings.ToLower(question)
	for _, row := range rows {
		if row.DocumentID == "" {
			continue
		}
		named := row.SourceURL != "" && strings.Contains(q, strings.ToLower(row.SourceURL))
		current, ok := best[row.DocumentID]
		if !ok {
			best[row.DocumentID] = docScore{row: row, score: row.RetrievalScore, named: named}
			order = append(order, row.DocumentID)
			continue
		}
		if row.RetrievalScore > current.score {
			current.row = row
			current.score = row.RetrievalScore
		}
		current.named = current.named || named
		best[row.DocumentID] = current
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := best[order[i]], best[order[j]]
		if a.named != b.named {
			return a.named
		}
		return a.score > b.score
	})
	if len(order) > e.maxDocs {
		order = order[:e.maxDocs]
	}

	synthetic := make([]domain.EvidenceRow, 0, len(order))
	traces := make([]domain.ExpansionTrace, 0, len(order))
	for _, documentID := range order {
		chunks, err := e.chunks.FullChunks(ctx, documentID)
		if err != nil {
			return nil, nil, fmt.Errorf("load full chunks for %s: %w", documentID, err)
		}

		parts := make([]string, 0, len(chunks))
		for _, chunk := range chunks {
			if isNavigationNoise(chunk.Text) {
				continue
			}
			parts = append(parts, chunk.Text)
		}
		full := strings.Join(parts, "\n\n")
		if full == "" {
			continue
		}

		text, truncated := truncateMiddle(full, e.charBudget)
		source := best[documentID].row
		synthetic = append(synthetic, domain.EvidenceRow{
			DocumentID:     documentID,
			SourceName:     source.SourceName,
			SourceType:     source.SourceType,
			SourceURL:      source.SourceURL,
			ChunkText:      text,
			ChunkType:      domain.ChunkDocumentFull,
			EvidenceType:   "document_full",
			Similarity:     domain.UnscoredSimilarity,
			RetrievalScore: best[documentID].score,
		})
		traces = append(traces, domain.ExpansionTrace{
			DocumentID: documentID,
			CharCount:  len(text),
			Truncated:  truncated,
		})
	}

	if len(synthetic) == 0 {
		return rows, nil, nil
	}
	out := make([]domain.EvidenceRow, 0, len(synthetic)+len(rows))
	out = append(out, synthetic...)
	out = append(out, rows...)
	return out, traces, nil
}

// truncateMiddle keeps the first and last budget/2 characters joined by the
// truncation marker.
func truncateMiddle(text string, budget int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= budget {
		return text, false
	}
	half := budget / 2
	return string(runes[:half]) + truncationMarker + string(runes[len(runes)-half:]), true
}
