package usecase

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenizeQuestionFiltersStopWordsAndShortTokens(t *testing.T) {
	got := tokenizeQuestion("How do I configure the vpn gateway from scratch?", false)
	want := []string{"configure", "gateway", "scratch"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTokenizeQuestionFirstOccurrenceWins(t *testing.T) {
	got := tokenizeQuestion("backup backup restore backup restore", false)
	want := []string{"backup", "restore"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTokenizeQuestionCapsTokenCount(t *testing.T) {
	parts := make([]string, 0, 20)
	for r := 'a'; r < 'a'+20; r++ {
		parts = append(parts, strings.Repeat(string(r), 5))
	}
	question := strings.Join(parts, " ")

	if got := tokenizeQuestion(question, false); len(got) != tokenMaxCount {
		t.Fatalf("expected %d tokens, got %d", tokenMaxCount, len(got))
	}
	if got := tokenizeQuestion(question, true); len(got) != tokenMaxCountBroad {
		t.Fatalf("expected %d broadened tokens, got %d", tokenMaxCountBroad, len(got))
	}
}

func TestTokenizeQuestionBroadenAdmitsShorterTokens(t *testing.T) {
	strict := tokenizeQuestion("set up the vpn", false)
	for _, token := range strict {
		if token == "vpn" {
			t.Fatalf("strict tokenization admitted 3-char token: %v", strict)
		}
	}

	broad := tokenizeQuestion("set up the vpn", true)
	found := false
	for _, token := range broad {
		if token == "vpn" {
			found = true
		}
	}
	if !found {
		t.Fatalf("broadened tokenization dropped 3-char token: %v", broad)
	}
}

func TestSplitAlphaNumLowerBreaksOnPunctuation(t *testing.T) {
	got := splitAlphaNumLower("Net-Config v2.1 (beta)")
	want := []string{"net", "config", "v2", "1", "beta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
