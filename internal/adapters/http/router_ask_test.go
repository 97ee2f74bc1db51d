package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contextforge/contextforge/internal/config"
	"github.com/contextforge/contextforge/internal/core/domain"
)

type askFake struct {
	result *domain.AskResult
	err    error
}

func (f askFake) Ask(context.Context, domain.AskRequest) (*domain.AskResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &domain.AskResult{
		Question:          "test",
		Answer:            "grounded answer",
		ConfidencePercent: 82,
		Grounded:          true,
		FallbackMode:      domain.FallbackNone,
	}, nil
}

type ingestFake struct {
	err error
}

func (f ingestFake) Upload(_ context.Context, upload domain.DocumentUpload, body io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return nil, err
	}
	return &domain.Document{
		ID:         "doc-1",
		SourceName: upload.SourceName,
		SourceType: upload.SourceType,
		Filename:   upload.Filename,
		Status:     domain.StatusUploaded,
	}, nil
}

type docsFake struct {
	err error
}

func (f docsFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: "doc-1", SourceName: "Handbook", SourceType: domain.SourcePDF, Status: domain.StatusReady}, nil
}

type historyFake struct {
	entries []domain.AskHistoryEntry
	err     error
}

func (f historyFake) SaveAsk(context.Context, *domain.AskHistoryEntry) error { return f.err }

func (f historyFake) ListRecent(context.Context, string, int) ([]domain.AskHistoryEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func newTestHandler(cfg config.Config) http.Handler {
	return NewRouter(cfg, askFake{}, ingestFake{}, docsFake{}, historyFake{}, nil, nil, nil).Handler()
}

func postAsk(t *testing.T, handler http.Handler, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestAskReturnsAnswer(t *testing.T) {
	handler := newTestHandler(config.Config{})

	res := postAsk(t, handler, map[string]any{"question": "how do I reset the vpn?"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var result domain.AskResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Answer != "grounded answer" {
		t.Fatalf("unexpected answer %q", result.Answer)
	}
	if result.ConfidencePercent != 82 {
		t.Fatalf("confidence = %d, want 82", result.ConfidencePercent)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected X-Request-Id header")
	}
}

func TestAskRejectsInvalidJSON(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewBufferString("{not json"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAskMapsInvalidInputTo400(t *testing.T) {
	handler := NewRouter(
		config.Config{},
		askFake{err: domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is required"))},
		ingestFake{},
		docsFake{},
		historyFake{},
		nil,
		nil,
		nil,
	).Handler()

	res := postAsk(t, handler, map[string]any{"question": ""})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAskMapsProviderFailureTo503(t *testing.T) {
	handler := NewRouter(
		config.Config{},
		askFake{err: domain.WrapError(domain.ErrProvider, "generate answer", errors.New("model is down"))},
		ingestFake{},
		docsFake{},
		historyFake{},
		nil,
		nil,
		nil,
	).Handler()

	res := postAsk(t, handler, map[string]any{"question": "anything"})
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestAskHistoryRequiresEmail(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/ask/history", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAskHistoryReturnsEntries(t *testing.T) {
	handler := NewRouter(
		config.Config{},
		askFake{},
		ingestFake{},
		docsFake{},
		historyFake{entries: []domain.AskHistoryEntry{{ID: "h-1", Question: "q", Answer: "a"}}},
		nil,
		nil,
		nil,
	).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/ask/history?email=user@example.com&limit=5", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body struct {
		Entries []domain.AskHistoryEntry `json:"entries"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Entries) != 1 || body.Entries[0].ID != "h-1" {
		t.Fatalf("unexpected entries: %+v", body.Entries)
	}
}
