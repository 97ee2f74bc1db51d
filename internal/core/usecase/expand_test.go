package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/contextforge/contextforge/internal/core/domain"
)

type stubChunkStore struct {
	chunks map[string][]domain.DocumentChunk
	err    error
}

func (s *stubChunkStore) ReplaceChunks(context.Context, string, []domain.DocumentChunk) error {
	return nil
}

func (s *stubChunkStore) FullChunks(_ context.Context, documentID string) ([]domain.DocumentChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.chunks[documentID], nil
}

func (s *stubChunkStore) SearchSubstring(context.Context, []string, domain.Modality, int) ([]domain.LexicalHit, error) {
	return nil, nil
}

func TestTruncateMiddleKeepsHeadAndTail(t *testing.T) {
	text := strings.Repeat("a", 50) + strings.Repeat("z", 50)
	got, truncated := truncateMiddle(text, 40)
	if !truncated {
		t.Fatalf("expected truncation")
	}
	if !strings.HasPrefix(got, strings.Repeat("a", 20)) {
		t.Fatalf("head lost: %q", got[:30])
	}
	if !strings.HasSuffix(got, strings.Repeat("z", 20)) {
		t.Fatalf("tail lost: %q", got[len(got)-30:])
	}
	if !strings.Contains(got, truncationMarker) {
		t.Fatalf("marker missing")
	}

	short, truncated := truncateMiddle("short text", 40)
	if truncated || short != "short text" {
		t.Fatalf("short text must pass through unchanged, got %q", short)
	}
}

func TestTruncateMiddleCountsRunes(t *testing.T) {
	got, truncated := truncateMiddle(strings.Repeat("é", 20), 10)
	if !truncated {
		t.Fatalf("expected truncation")
	}
	if !utf8.ValidString(got) {
		t.Fatalf("result is not valid UTF-8: %q", got)
	}
	want := strings.Repeat("é", 5) + truncationMarker + strings.Repeat("é", 5)
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	// A budget measured in runes must not truncate multibyte text whose
	// byte length exceeds it.
	intact, truncated := truncateMiddle(strings.Repeat("é", 10), 10)
	if truncated || intact != strings.Repeat("é", 10) {
		t.Fatalf("text within rune budget must pass through unchanged, got %q", intact)
	}
}

func TestExpandPrependsFullDocumentRows(t *testing.T) {
	store := &stubChunkStore{chunks: map[string][]domain.DocumentChunk{
		"doc-a": {
			{ID: "1", DocumentID: "doc-a", ChunkIndex: 0, ChunkType: domain.ChunkText, Text: "Part one."},
			{ID: "2", DocumentID: "doc-a", ChunkIndex: 1, ChunkType: domain.ChunkText, Text: "Part two."},
		},
	}}
	expander := NewContextExpander(store, 1, 6000)

	chunkID := "1"
	rows := []domain.EvidenceRow{{
		ChunkID:        &chunkID,
		DocumentID:     "doc-a",
		SourceName:     "handbook",
		SourceType:     domain.SourcePDF,
		ChunkText:      "Part one.",
		ChunkType:      domain.ChunkText,
		RetrievalScore: 2.5,
	}}

	out, traces, err := expander.Expand(context.Background(), "how do I do the thing", rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected synthetic row prepended, got %d rows", len(out))
	}
	full := out[0]
	if full.ChunkType != domain.ChunkDocumentFull {
		t.Fatalf("expected document_full chunk type, got %s", full.ChunkType)
	}
	if full.ChunkText != "Part one.\n\nPart two." {
		t.Fatalf("unexpected joined text %q", full.ChunkText)
	}
	if full.RetrievalScore != 2.5 {
		t.Fatalf("synthetic row should carry best document score, got %f", full.RetrievalScore)
	}
	if len(traces) != 1 || traces[0].DocumentID != "doc-a" || traces[0].Truncated {
		t.Fatalf("unexpected traces %+v", traces)
	}
}

func TestExpandHonorsDocumentCap(t *testing.T) {
	store := &stubChunkStore{chunks: map[string][]domain.DocumentChunk{
		"doc-a": {{Text: "A text."}},
		"doc-b": {{Text: "B text."}},
	}}
	expander := NewContextExpander(store, 1, 6000)

	a, b := "a", "b"
	rows := []domain.EvidenceRow{
		{ChunkID: &a, DocumentID: "doc-a", SourceName: "s1", RetrievalScore: 1.0, ChunkText: "x"},
		{ChunkID: &b, DocumentID: "doc-b", SourceName: "s2", RetrievalScore: 3.0, ChunkText: "y"},
	}

	out, traces, err := expander.Expand(context.Background(), "question", rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(traces) != 1 || traces[0].DocumentID != "doc-b" {
		t.Fatalf("expected only the best-scoring document expanded, got %+v", traces)
	}
	if len(out) != 3 {
		t.Fatalf("expected 1 synthetic + 2 original rows, got %d", len(out))
	}
}

func TestExpandPropagatesStoreErrors(t *testing.T) {
	store := &stubChunkStore{err: errors.New("db down")}
	expander := NewContextExpander(store, 2, 6000)

	id := "1"
	rows := []domain.EvidenceRow{{ChunkID: &id, DocumentID: "doc-a", ChunkText: "x", RetrievalScore: 1}}
	if _, _, err := expander.Expand(context.Background(), "question", rows); err == nil {
		t.Fatalf("expected error from chunk store")
	}
}

func TestExpandEmptyRowsIsNoop(t *testing.T) {
	expander := NewContextExpander(&stubChunkStore{}, 2, 6000)
	out, traces, err := expander.Expand(context.Background(), "question", nil)
	if err != nil || out != nil || traces != nil {
		t.Fatalf("expected noop, got %v %v %v", out, traces, err)
	}
}
