package chunking

import (
	"strings"
	"testing"
)

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(100, 20)
	if got := s.Split(""); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := NewSplitter(100, 20)
	got := s.Split("short text")
	if len(got) != 1 || got[0] != "short text" {
		t.Fatalf("unexpected chunks: %v", got)
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	s := NewSplitter(50, 10)
	text := strings.Repeat("abcde ", 40)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if n := len([]rune(chunk)); n > 50 {
			t.Fatalf("chunk %d has %d runes, limit 50", i, n)
		}
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	s := NewSplitter(60, 0)
	text := "First sentence goes here and fills space. Second sentence is cut somewhere in the middle of it."

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}
	if !strings.HasSuffix(chunks[0], ".") {
		t.Fatalf("first chunk should end at a sentence boundary, got %q", chunks[0])
	}
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	s := NewSplitter(60, 0)
	text := "Paragraph one has a decent amount of text in it.\n\nParagraph two continues with more text after the break."

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}
	if chunks[0] != "Paragraph one has a decent amount of text in it." {
		t.Fatalf("first chunk %q should stop at the paragraph break", chunks[0])
	}
}

func TestSplitOverlapCarriesTailForward(t *testing.T) {
	s := NewSplitter(30, 10)
	text := strings.Repeat("x", 25) + strings.Repeat("y", 25)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}
	tail := chunks[0][len(chunks[0])-5:]
	if !strings.Contains(chunks[1], tail) {
		t.Fatalf("second chunk %q should repeat the tail of the first %q", chunks[1], chunks[0])
	}
}

func TestNewSplitterNormalizesBadValues(t *testing.T) {
	s := NewSplitter(0, -1)
	if s.ChunkSize != 900 || s.Overlap != 0 {
		t.Fatalf("unexpected defaults: %+v", s)
	}

	s = NewSplitter(100, 100)
	if s.Overlap != 25 {
		t.Fatalf("overlap = %d, want 25", s.Overlap)
	}
}
