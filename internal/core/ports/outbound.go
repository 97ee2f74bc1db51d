package ports

import (
	"context"
	"io"

	"github.com/contextforge/contextforge/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
}

// ChunkStore persists extracted chunks and answers lexical queries over them.
// Searches are restricted to documents in ready status.
type ChunkStore interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error
	FullChunks(ctx context.Context, documentID string) ([]domain.DocumentChunk, error)
	SearchSubstring(ctx context.Context, tokens []string, modality domain.Modality, limit int) ([]domain.LexicalHit, error)
}

// VectorIndex indexes chunk vectors and performs nearest-neighbor search.
// SearchNearest returns hits ordered by distance ascending, restricted to
// ready documents.
type VectorIndex interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.DocumentChunk, vectors [][]float32) error
	SearchNearest(ctx context.Context, queryVector []float32, modality domain.Modality, limit int) ([]domain.VectorHit, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// TextGenerator is the answer/planning generation provider. Failures carry
// domain.ErrProvider so callers can choose heuristic fallback or propagate.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxOutputTokens int) (string, error)
}

// ObjectStorage stores source documents and extracted assets.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// AssetURLResolver issues temporary URLs for stored image assets.
type AssetURLResolver interface {
	URL(storageKey string) (string, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts ordered content segments from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) ([]domain.ExtractedSegment, error)
}

// Chunker splits text into bounded retrieval chunks.
type Chunker interface {
	Split(text string) []string
}

// UserStore upserts the asking user and touches last login.
type UserStore interface {
	EnsureUser(ctx context.Context, email, fullName string) (string, error)
}

// HistoryWriter is the trace/answer persistence sink.
type HistoryWriter interface {
	SaveAsk(ctx context.Context, entry *domain.AskHistoryEntry) error
	ListRecent(ctx context.Context, userEmail string, limit int) ([]domain.AskHistoryEntry, error)
}
