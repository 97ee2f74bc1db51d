package usecase

import "strings"

const (
	tokenMaxCount       = 10
	tokenMaxCountBroad  = 12
	tokenMinLength      = 4
	tokenMinLengthBroad = 3
)

var stopWords = map[string]struct{}{
	"about": {}, "after": {}, "also": {}, "been": {}, "before": {},
	"being": {}, "between": {}, "could": {}, "does": {}, "doing": {},
	"from": {}, "have": {}, "having": {}, "here": {}, "into": {},
	"more": {}, "most": {}, "other": {}, "over": {}, "should": {},
	"some": {}, "than": {}, "that": {}, "their": {}, "them": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {},
	"under": {}, "until": {}, "very": {}, "were": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "while": {}, "will": {},
	"with": {}, "would": {}, "your": {},
}

// tokenizeQuestion turns question text into the bounded, deduplicated,
// stop-word-filtered token list used by lexical search. First occurrence
// wins; broadened retrieval admits shorter and more tokens.
func tokenizeQuestion(question string, broaden bool) []string {
	minLen := tokenMinLength
	maxCount := tokenMaxCount
	if broaden {
		minLen = tokenMinLengthBroad
		maxCount = tokenMaxCountBroad
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, maxCount)
	for _, token := range splitAlphaNumLower(question) {
		if len(token) < minLen {
			continue
		}
		if _, stop := stopWords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
		if len(out) == maxCount {
			break
		}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
