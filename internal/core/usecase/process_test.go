package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/contextforge/contextforge/internal/core/domain"
)

type fakeExtractor struct {
	segments []domain.ExtractedSegment
	err      error
}

func (f *fakeExtractor) Extract(context.Context, *domain.Document) ([]domain.ExtractedSegment, error) {
	return f.segments, f.err
}

type fixedChunker struct{ size int }

func (c fixedChunker) Split(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	for len(text) > c.size {
		out = append(out, text[:c.size])
		text = text[c.size:]
	}
	return append(out, text)
}

type recordingChunkStore struct {
	stubChunkStore
	replaced map[string][]domain.DocumentChunk
}

func (r *recordingChunkStore) ReplaceChunks(_ context.Context, documentID string, chunks []domain.DocumentChunk) error {
	if r.replaced == nil {
		r.replaced = map[string][]domain.DocumentChunk{}
	}
	r.replaced[documentID] = chunks
	return nil
}

func intPtr(v int) *int { return &v }

func TestProcessByIDHappyPath(t *testing.T) {
	repo := newFakeDocumentRepo()
	repo.docs["doc-1"] = &domain.Document{ID: "doc-1", SourceName: "Handbook", SourceType: domain.SourcePDF}

	extractor := &fakeExtractor{segments: []domain.ExtractedSegment{
		{Text: strings.Repeat("a", 25), ChunkType: domain.ChunkText, PageNumber: intPtr(1)},
		{Text: "region | count", ChunkType: domain.ChunkTableRow, PageNumber: intPtr(2)},
	}}
	store := &recordingChunkStore{}
	backend := &fakeRetrievalBackend{}
	uc := NewProcessDocumentUseCase(repo, extractor, fixedChunker{size: 10}, store, backend, backend)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks := store.replaced["doc-1"]
	if len(chunks) != 4 {
		t.Fatalf("expected 3 split text chunks plus 1 table row, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.ChunkIndex != i {
			t.Fatalf("chunk order broken at %d: %+v", i, chunk)
		}
		if chunk.DocumentID != "doc-1" || chunk.ID == "" {
			t.Fatalf("chunk identity missing: %+v", chunk)
		}
	}
	if chunks[3].ChunkType != domain.ChunkTableRow {
		t.Fatalf("table segment must stay whole, got %s", chunks[3].ChunkType)
	}
	if chunks[0].PageNumber == nil || *chunks[0].PageNumber != 1 {
		t.Fatalf("page number lost on split chunks")
	}

	wantStatuses := []domain.DocumentStatus{domain.StatusProcessing, domain.StatusReady}
	if len(repo.statuses) != 2 || repo.statuses[0] != wantStatuses[0] || repo.statuses[1] != wantStatuses[1] {
		t.Fatalf("unexpected status transitions %v", repo.statuses)
	}
}

func TestProcessByIDMarksFailedOnExtractionError(t *testing.T) {
	repo := newFakeDocumentRepo()
	repo.docs["doc-1"] = &domain.Document{ID: "doc-1"}

	extractor := &fakeExtractor{err: errors.New("corrupt pdf")}
	backend := &fakeRetrievalBackend{}
	uc := NewProcessDocumentUseCase(repo, extractor, fixedChunker{size: 10}, &recordingChunkStore{}, backend, backend)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.statuses) != 2 || repo.statuses[1] != domain.StatusFailed {
		t.Fatalf("expected failed status recorded, got %v", repo.statuses)
	}
	if repo.docs["doc-1"].Error == "" {
		t.Fatalf("expected error message persisted on document")
	}
}

func TestProcessByIDRejectsEmptyExtraction(t *testing.T) {
	repo := newFakeDocumentRepo()
	repo.docs["doc-1"] = &domain.Document{ID: "doc-1"}

	backend := &fakeRetrievalBackend{}
	uc := NewProcessDocumentUseCase(repo, &fakeExtractor{}, fixedChunker{size: 10}, &recordingChunkStore{}, backend, backend)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty extraction, got %v", err)
	}
	if repo.docs["doc-1"].Status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", repo.docs["doc-1"].Status)
	}
}
