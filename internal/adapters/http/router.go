package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/contextforge/contextforge/internal/config"
	"github.com/contextforge/contextforge/internal/core/domain"
	"github.com/contextforge/contextforge/internal/core/ports"
	"github.com/contextforge/contextforge/internal/observability/metrics"
)

const serviceName = "api"

// AssetVerifier checks the signature on incoming asset URLs. Implemented by
// the signed URL resolver that issued them.
type AssetVerifier interface {
	Verify(storageKey string, expires int64, sig string) error
}

type Router struct {
	cfg     config.Config
	ask     ports.QuestionAnswerer
	ingest  ports.DocumentIngestor
	docs    ports.DocumentReader
	history ports.HistoryWriter
	storage ports.ObjectStorage
	assets  AssetVerifier
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	ask ports.QuestionAnswerer,
	ingest ports.DocumentIngestor,
	docs ports.DocumentReader,
	history ports.HistoryWriter,
	storage ports.ObjectStorage,
	assets AssetVerifier,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:     cfg,
		ask:     ask,
		ingest:  ingest,
		docs:    docs,
		history: history,
		storage: storage,
		assets:  assets,
		metrics: m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/v1/ask", rt.askGate(http.HandlerFunc(rt.askQuestion)))
	mux.HandleFunc("/v1/ask/history", rt.askHistory)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	mux.HandleFunc("/v1/assets/", rt.serveAsset)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

// askGate applies per-endpoint traffic control to question answering, which
// is the only endpoint that fans out to the model provider.
func (rt *Router) askGate(next http.Handler) http.Handler {
	next = backpressureMiddleware(next, askMaxInFlight, askQueueWait)
	if rt.cfg.AskRateLimitRPS > 0 {
		next = rateLimitMiddleware(next, rt.cfg.AskRateLimitRPS, rt.cfg.AskRateLimitBurst)
	}
	return next
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) askQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	result, err := rt.ask.Ask(r.Context(), req)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordAskFailure(serviceName)
		}
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordAskObservation(
			serviceName,
			string(result.FallbackMode),
			len(result.Rows),
			len(result.Trace.Rounds),
			time.Since(start),
		)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) askHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email query parameter is required"})
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	entries, err := rt.history.ListRecent(r.Context(), email, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	upload := domain.DocumentUpload{
		SourceName: r.FormValue("source_name"),
		SourceType: domain.SourceType(r.FormValue("source_type")),
		SourceURL:  r.FormValue("source_url"),
		Filename:   fileHeader.Filename,
		MimeType:   fileHeader.Header.Get("Content-Type"),
	}
	if upload.SourceType == "" {
		upload.SourceType = domain.SourcePDF
	}

	doc, err := rt.ingest.Upload(r.Context(), upload, file)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, string(doc.SourceType))
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) serveAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.assets == nil || rt.storage == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "assets are not served by this instance"})
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/v1/assets/")
	if key == "" || strings.Contains(key, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "asset key is required"})
		return
	}

	expires, err := strconv.ParseInt(r.URL.Query().Get("exp"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exp query parameter is required"})
		return
	}
	if err := rt.assets.Verify(key, expires, r.URL.Query().Get("sig")); err != nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid or expired asset url"})
		return
	}

	reader, err := rt.storage.Open(r.Context(), key)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "asset not found"})
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = io.Copy(w, reader)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
