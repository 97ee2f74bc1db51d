package usecase

import (
	"strings"

	"github.com/contextforge/contextforge/internal/core/domain"
)

// offTopicTerms is the deliberately coarse in-scope filter: a question that
// found no evidence and mentions one of these is refused instead of answered
// from model knowledge.
var offTopicTerms = []string{
	"weather",
	"nba",
	"nfl",
	"football score",
	"movie review",
	"recipe",
	"horoscope",
	"lottery",
}

func isOutOfScope(question string) bool {
	q := strings.ToLower(question)
	for _, term := range offTopicTerms {
		if strings.Contains(q, term) {
			return true
		}
	}
	return false
}

// classifyFallback maps the retrieval outcome to a terminal fallback mode.
func classifyFallback(question string, rowsFound, secondRoundRan bool) domain.FallbackMode {
	if rowsFound {
		if secondRoundRan {
			return domain.FallbackBroadened
		}
		return domain.FallbackNone
	}
	if isOutOfScope(question) {
		return domain.FallbackOutOfScope
	}
	return domain.FallbackModelKnowledge
}

// confidenceForMode is a pure function of the fallback mode; raw retrieval
// scores never influence it.
func confidenceForMode(mode domain.FallbackMode) int {
	switch mode {
	case domain.FallbackNone:
		return 82
	case domain.FallbackBroadened:
		return 72
	case domain.FallbackModelKnowledge:
		return 42
	default:
		return 18
	}
}
