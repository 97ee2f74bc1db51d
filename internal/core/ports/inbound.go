package ports

import (
	"context"
	"io"

	"github.com/contextforge/contextforge/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for the retrieval-and-grounding
// pipeline.
type QuestionAnswerer interface {
	Ask(ctx context.Context, req domain.AskRequest) (*domain.AskResult, error)
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, upload domain.DocumentUpload, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document
// processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
