package usecase

import (
	"regexp"
	"sort"
	"strings"

	"github.com/contextforge/contextforge/internal/core/domain"
)

const (
	sourceOverlapMaxBonus = 1.5
	productMentionBonus   = 1.5
	productMissPenalty    = 0.6
	commandBonus          = 3.0
	pathBonus             = 1.6
	configKeyBonus        = 1.4
	phraseBonus           = 0.7
)

var (
	commandPattern = regexp.MustCompile(`(?m)(?:^|[\s$])(?:sudo|systemctl|docker|kubectl|git|curl|wget|apt|apt-get|yum|dnf|npm|pip|make|helm|terraform|ssh|service|chmod|chown|mkdir|export)\s+\S+`)
	pathPattern    = regexp.MustCompile(`(?:^|\s)(?:/[A-Za-z0-9._-]+){2,}`)
	configPattern  = regexp.MustCompile(`(?m)^\s*[A-Za-z][A-Za-z0-9_.-]*\s*[:=]\s*\S+`)

	prerequisitePhrases = []string{"prerequisite", "requirements"}
	verificationPhrases = []string{"verify", "status", "health"}
)

// rerankEvidence rescales each row's relevance from its raw similarity plus
// lexical and, for procedural questions, structural signal bonuses, then
// re-applies the dedupe and source-cap policy. It never invents rows.
func rerankEvidence(rows []domain.EvidenceRow, question string, questionType domain.QuestionType, limit int) []domain.EvidenceRow {
	if len(rows) == 0 {
		return rows
	}

	questionTokens := tokenizeQuestion(question, false)
	product := productTerm(question)
	procedural := questionType == domain.QuestionProcedural

	scored := make([]domain.EvidenceRow, len(rows))
	copy(scored, rows)
	for i := range scored {
		score := scored[i].Similarity
		if score == domain.UnscoredSimilarity {
			score = 0
		}

		score += sourceOverlapBonus(questionTokens, scored[i])

		if product != "" {
			if mentionsTerm(scored[i], product) {
				score += productMentionBonus
			} else {
				score -= productMissPenalty
			}
		}

		if procedural {
			text := scored[i].ChunkText
			if commandPattern.MatchString(text) {
				score += commandBonus
			}
			if pathPattern.MatchString(text) {
				score += pathBonus
			}
			if configPattern.MatchString(text) {
				score += configKeyBonus
			}
			lower := strings.ToLower(text)
			if containsAny(lower, prerequisitePhrases) {
				score += phraseBonus
			}
			if containsAny(lower, verificationPhrases) {
				score += phraseBonus
			}
		}

		scored[i].RetrievalScore = score
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].RetrievalScore != scored[j].RetrievalScore {
			return scored[i].RetrievalScore > scored[j].RetrievalScore
		}
		return scored[i].Similarity > scored[j].Similarity
	})

	sourceCap := 1
	if procedural {
		sourceCap = 2
	}
	return capThenRelax(scored, scored, limit, sourceCap)
}

func sourceOverlapBonus(questionTokens []string, row domain.EvidenceRow) float64 {
	if len(questionTokens) == 0 {
		return 0
	}
	sourceTokens := make(map[string]struct{})
	for _, t := range splitAlphaNumLower(row.SourceName) {
		sourceTokens[t] = struct{}{}
	}
	for _, t := range splitAlphaNumLower(row.SourceURL) {
		sourceTokens[t] = struct{}{}
	}
	if len(sourceTokens) == 0 {
		return 0
	}

	matches := 0
	for _, token := range questionTokens {
		if _, ok := sourceTokens[token]; ok {
			matches++
		}
	}
	bonus := sourceOverlapMaxBonus * float64(matches) / float64(len(questionTokens))
	if bonus > sourceOverlapMaxBonus {
		bonus = sourceOverlapMaxBonus
	}
	return bonus
}

// productTerm picks the question token that names a specific product or
// module: the first technical-looking identifier, if any.
func productTerm(question string) string {
	if m := technicalNamePattern.FindString(question); m != "" {
		return strings.ToLower(m)
	}
	return ""
}

func mentionsTerm(row domain.EvidenceRow, term string) bool {
	return strings.Contains(strings.ToLower(row.ChunkText), term) ||
		strings.Contains(strings.ToLower(row.SourceName), term) ||
		strings.Contains(strings.ToLower(row.SourceURL), term)
}

func containsAny(haystack string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(haystack, phrase) {
			return true
		}
	}
	return false
}
