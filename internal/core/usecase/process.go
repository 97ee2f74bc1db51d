package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/contextforge/contextforge/internal/core/domain"
	"github.com/contextforge/contextforge/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	chunks    ports.ChunkStore
	embedder  ports.Embedder
	vectors   ports.VectorIndex
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	chunks ports.ChunkStore,
	embedder ports.Embedder,
	vectors ports.VectorIndex,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		chunks:    chunks,
		embedder:  embedder,
		vectors:   vectors,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.processPipeline(ctx, documentID); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) error {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return err
	}

	segments, err := uc.extractSegments(ctx, doc)
	if err != nil {
		return err
	}

	chunks := uc.buildChunks(doc.ID, segments)
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "build chunks", errors.New("no chunks produced"))
	}

	if err := uc.chunks.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return fmt.Errorf("replace chunks: %w", err)
	}

	vectors, err := uc.embed(ctx, chunks)
	if err != nil {
		return err
	}

	if err := uc.vectors.IndexChunks(ctx, doc, chunks, vectors); err != nil {
		return fmt.Errorf("index vectors: %w", err)
	}

	return nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) extractSegments(ctx context.Context, doc *domain.Document) ([]domain.ExtractedSegment, error) {
	segments, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	if len(segments) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract content", errors.New("no content extracted"))
	}
	return segments, nil
}

// buildChunks splits plain text segments through the chunker and keeps table
// segments whole, preserving segment order and page numbers.
func (uc *ProcessDocumentUseCase) buildChunks(documentID string, segments []domain.ExtractedSegment) []domain.DocumentChunk {
	chunks := make([]domain.DocumentChunk, 0, len(segments))
	index := 0

	add := func(text string, chunkType domain.ChunkType, page *int) {
		chunks = append(chunks, domain.DocumentChunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			ChunkIndex: index,
			ChunkType:  chunkType,
			Text:       text,
			PageNumber: page,
		})
		index++
	}

	for _, segment := range segments {
		if segment.ChunkType == domain.ChunkText {
			for _, part := range uc.chunker.Split(segment.Text) {
				add(part, domain.ChunkText, segment.PageNumber)
			}
			continue
		}
		add(segment.Text, segment.ChunkType, segment.PageNumber)
	}
	return chunks
}

func (uc *ProcessDocumentUseCase) embed(ctx context.Context, chunks []domain.DocumentChunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	return vectors, nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
