package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/contextforge/contextforge/internal/core/domain"
)

type fakeStorage struct {
	keys []string
	err  error
}

func (f *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	if _, err := io.Copy(io.Discard, data); err != nil {
		return err
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeStorage) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type fakeQueue struct {
	published []string
	err       error
}

func (f *fakeQueue) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *fakeQueue) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

type fakeDocumentRepo struct {
	docs     map[string]*domain.Document
	statuses []domain.DocumentStatus
	createE  error
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: map[string]*domain.Document{}}
}

func (f *fakeDocumentRepo) Create(_ context.Context, doc *domain.Document) error {
	if f.createE != nil {
		return f.createE
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocumentRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	return doc, nil
}

func (f *fakeDocumentRepo) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	f.statuses = append(f.statuses, status)
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
		doc.Error = errMessage
	}
	return nil
}

func TestUploadPersistsAndPublishes(t *testing.T) {
	repo := newFakeDocumentRepo()
	storage := &fakeStorage{}
	queue := &fakeQueue{}
	uc := NewIngestDocumentUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), domain.DocumentUpload{
		SourceName: "Admin Handbook",
		SourceType: domain.SourcePDF,
		Filename:   "admin handbook v2.pdf",
		MimeType:   "application/pdf",
	}, bytes.NewBufferString("%PDF-1.7"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Status != domain.StatusUploaded {
		t.Fatalf("expected uploaded status, got %s", doc.Status)
	}
	if len(storage.keys) != 1 || !strings.HasSuffix(storage.keys[0], "_admin_handbook_v2.pdf") {
		t.Fatalf("unexpected storage key %v", storage.keys)
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("expected ingestion event for %s, got %v", doc.ID, queue.published)
	}
	if _, ok := repo.docs[doc.ID]; !ok {
		t.Fatalf("document metadata not persisted")
	}
}

func TestUploadValidation(t *testing.T) {
	uc := NewIngestDocumentUseCase(newFakeDocumentRepo(), &fakeStorage{}, &fakeQueue{})

	cases := []domain.DocumentUpload{
		{SourceType: domain.SourcePDF, Filename: "a.pdf"},
		{SourceName: "Docs", SourceType: "ftp", Filename: "a.bin"},
		{SourceName: "Docs", SourceType: domain.SourceWeb, Filename: "page.html"},
	}
	for _, upload := range cases {
		if _, err := uc.Upload(context.Background(), upload, bytes.NewReader(nil)); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected invalid input for %+v, got %v", upload, err)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report final.pdf":     "report_final.pdf",
		"../../etc/passwd":     "passwd",
		"данные.pdf":           "______.pdf",
		"":                     "document.bin",
		"web page (copy).html": "web_page__copy_.html",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
