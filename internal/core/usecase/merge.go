package usecase

import (
	"strings"

	"github.com/contextforge/contextforge/internal/core/domain"
)

const dedupeTextPrefixLen = 180

// navNoisePhrases is boilerplate that keeps leaking out of crawled pages.
// A row whose normalized text matches two or more of these is dropped.
var navNoisePhrases = []string{
	"skip to content",
	"skip to main content",
	"table of contents",
	"all rights reserved",
	"privacy policy",
	"terms of service",
	"cookie settings",
	"subscribe to our newsletter",
	"back to top",
	"sign in",
	"log in",
	"navigation menu",
}

func isNavigationNoise(text string) bool {
	normalized := normalizeText(text)
	hits := 0
	for _, phrase := range navNoisePhrases {
		if strings.Contains(normalized, phrase) {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// dedupeKey prefers content identity (source name + text prefix) so the same
// passage ingested twice collapses, then falls back to row identity.
func dedupeKey(row domain.EvidenceRow) string {
	normText := normalizeText(row.ChunkText)
	if normText != "" && row.SourceName != "" {
		prefix := normText
		if runes := []rune(prefix); len(runes) > dedupeTextPrefixLen {
			prefix = string(runes[:dedupeTextPrefixLen])
		}
		return "src|" + normalizeText(row.SourceName) + "|" + prefix
	}
	if row.ChunkID != nil {
		return "chunk|" + *row.ChunkID
	}
	if row.ImageID != nil {
		return "image|" + *row.ImageID
	}
	prefix := normText
	if len(prefix) > dedupeTextPrefixLen {
		prefix = prefix[:dedupeTextPrefixLen]
	}
	return "doc|" + row.DocumentID + "|" + prefix
}

// mergeEvidence combines embedding and keyword rows: noise filter, dedupe,
// and a per-source concentration cap, then a relaxed second pass that ignores
// the cap so diversity never empties the result.
func mergeEvidence(embeddingRows, keywordRows []domain.EvidenceRow, limit int, broaden bool) []domain.EvidenceRow {
	if limit <= 0 {
		return nil
	}

	sourceCap := 1
	if broaden {
		sourceCap = 2
	}

	embedding := dropNoise(embeddingRows)
	keyword := dropNoise(keywordRows)

	primary := make([]domain.EvidenceRow, 0, len(embedding)+len(keyword))
	primary = append(primary, embedding...)
	primary = append(primary, keyword...)

	relaxed := make([]domain.EvidenceRow, 0, len(embedding)+len(keyword))
	relaxed = append(relaxed, keyword...)
	relaxed = append(relaxed, embedding...)

	return capThenRelax(primary, relaxed, limit, sourceCap)
}

// capThenRelax admits rows from primary honoring both the dedupe key and the
// source cap, then fills remaining slots from relaxed ignoring the cap.
func capThenRelax(primary, relaxed []domain.EvidenceRow, limit, sourceCap int) []domain.EvidenceRow {
	out := make([]domain.EvidenceRow, 0, limit)
	seen := make(map[string]struct{})
	perSource := make(map[string]int)

	for _, row := range primary {
		if len(out) == limit {
			break
		}
		key := dedupeKey(row)
		if _, dup := seen[key]; dup {
			continue
		}
		if perSource[row.SourceKey()] >= sourceCap {
			continue
		}
		seen[key] = struct{}{}
		perSource[row.SourceKey()]++
		out = append(out, row)
	}

	if len(out) < limit {
		for _, row := range relaxed {
			if len(out) == limit {
				break
			}
			key := dedupeKey(row)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, row)
		}
	}
	return out
}

func dropNoise(rows []domain.EvidenceRow) []domain.EvidenceRow {
	out := make([]domain.EvidenceRow, 0, len(rows))
	for _, row := range rows {
		if isNavigationNoise(row.ChunkText) {
			continue
		}
		out = append(out, row)
	}
	return out
}
