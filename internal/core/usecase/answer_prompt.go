package usecase

import (
	"fmt"
	"strings"

	"github.com/contextforge/contextforge/internal/core/domain"
)

const (
	promptMaxRows        = 8
	promptExcerptRunes   = 900
	promptFullDocExcerpt = 6500
)

const answerSystemPrompt = "You are ContextForge, an assistant that answers questions about indexed company " +
	"documents and web pages. Prefer the provided evidence. Quote exact commands, configuration keys and file " +
	"paths verbatim when they appear in the evidence. If the evidence does not cover the question, say so " +
	"before answering from general knowledge."

// buildAnswerPrompt renders the evidence rows and the question into the user
// prompt for answer synthesis.
func buildAnswerPrompt(question string, rows []domain.EvidenceRow, mode domain.FallbackMode) string {
	var b strings.Builder

	switch mode {
	case domain.FallbackModelKnowledge:
		b.WriteString("No indexed evidence matched this question. Answer from general knowledge and state that no internal sources were found.\n\n")
	case domain.FallbackBroadened:
		b.WriteString("Evidence below was found only after broadened retrieval and may be partial.\n\n")
	}

	if len(rows) > 0 {
		b.WriteString("Evidence:\n")
		for i, row := range rows {
			if i == promptMaxRows {
				break
			}
			limit := promptExcerptRunes
			if row.ChunkType == domain.ChunkDocumentFull {
				limit = promptFullDocExcerpt
			}
			fmt.Fprintf(&b, "[%d] source=%s (%s)", i+1, row.SourceName, row.SourceType)
			if row.PageNumber != nil {
				fmt.Fprintf(&b, " page=%d", *row.PageNumber)
			}
			b.WriteString("\n")
			b.WriteString(excerpt(row.ChunkText, limit))
			b.WriteString("\n\n")
		}
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

func excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
