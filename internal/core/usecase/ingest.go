package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/contextforge/contextforge/internal/core/domain"
	"github.com/contextforge/contextforge/internal/core/ports"
)

type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	upload domain.DocumentUpload,
	body io.Reader,
) (*domain.Document, error) {
	if err := validateUpload(upload); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(upload.Filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:          id,
		SourceName:  strings.TrimSpace(upload.SourceName),
		SourceType:  upload.SourceType,
		SourceURL:   strings.TrimSpace(upload.SourceURL),
		Filename:    upload.Filename,
		MimeType:    upload.MimeType,
		StoragePath: storageKey,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return doc, nil
}

func validateUpload(upload domain.DocumentUpload) error {
	if strings.TrimSpace(upload.SourceName) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("source_name is required"))
	}
	switch upload.SourceType {
	case domain.SourcePDF:
	case domain.SourceWeb:
		if strings.TrimSpace(upload.SourceURL) == "" {
			return domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("source_url is required for web sources"))
		}
	default:
		return domain.WrapError(domain.ErrInvalidInput, "upload document",
			fmt.Errorf("unsupported source_type %q", upload.SourceType))
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
