package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	askRequestsTotal *prometheus.CounterVec
	askModeTotal     *prometheus.CounterVec
	askGroundedTotal *prometheus.CounterVec
	askNoEvidence    *prometheus.CounterVec
	askEvidenceRows  *prometheus.HistogramVec
	askRounds        *prometheus.HistogramVec
	askDuration      *prometheus.HistogramVec
	askFailuresTotal *prometheus.CounterVec
	ingestTotal      *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contextforge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "contextforge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "contextforge",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	askRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contextforge",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total successfully answered questions.",
		},
		[]string{"service"},
	)
	askModeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contextforge",
			Subsystem: "ask",
			Name:      "mode_requests_total",
			Help:      "Answered questions by fallback mode.",
		},
		[]string{"service", "mode"},
	)
	askGroundedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contextforge",
			Subsystem: "ask",
			Name:      "grounded_total",
			Help:      "Answered questions backed by at least one evidence row.",
		},
		[]string{"service"},
	)
	askNoEvidence := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contextforge",
			Subsystem: "ask",
			Name:      "no_evidence_total",
			Help:      "Answered questions with no evidence rows.",
		},
		[]string{"service"},
	)
	askEvidenceRows := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "contextforge",
			Subsystem: "ask",
			Name:      "evidence_rows",
			Help:      "Distribution of evidence rows per answered question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	askRounds := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "contextforge",
			Subsystem: "ask",
			Name:      "retrieval_rounds",
			Help:      "Distribution of retrieval rounds per answered question.",
			Buckets:   []float64{1, 2, 3},
		},
		[]string{"service"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "contextforge",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "Question answering duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	askFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contextforge",
			Subsystem: "ask",
			Name:      "failures_total",
			Help:      "Questions that ended in an error response.",
		},
		[]string{"service"},
	)
	ingestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "contextforge",
			Subsystem: "ingest",
			Name:      "uploads_total",
			Help:      "Total accepted document uploads by source type.",
		},
		[]string{"service", "source_type"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		askRequestsTotal,
		askModeTotal,
		askGroundedTotal,
		askNoEvidence,
		askEvidenceRows,
		askRounds,
		askDuration,
		askFailuresTotal,
		ingestTotal,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		askRequestsTotal: askRequestsTotal,
		askModeTotal:     askModeTotal,
		askGroundedTotal: askGroundedTotal,
		askNoEvidence:    askNoEvidence,
		askEvidenceRows:  askEvidenceRows,
		askRounds:        askRounds,
		askDuration:      askDuration,
		askFailuresTotal: askFailuresTotal,
		ingestTotal:      ingestTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/v1/assets/"):
		return "/v1/assets/{asset_key}"
	default:
		return path
	}
}

// RecordAskObservation records one answered question. mode is the fallback
// mode string, rows the evidence row count, rounds the retrieval round count.
func (m *HTTPServerMetrics) RecordAskObservation(service, mode string, rows, rounds int, duration time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	m.askRequestsTotal.WithLabelValues(service).Inc()
	m.askModeTotal.WithLabelValues(service, mode).Inc()
	m.askEvidenceRows.WithLabelValues(service).Observe(float64(rows))
	if rounds > 0 {
		m.askRounds.WithLabelValues(service).Observe(float64(rounds))
	}
	m.askDuration.WithLabelValues(service).Observe(duration.Seconds())

	if rows > 0 {
		m.askGroundedTotal.WithLabelValues(service).Inc()
		return
	}
	m.askNoEvidence.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordAskFailure(service string) {
	m.askFailuresTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordUpload(service, sourceType string) {
	if sourceType == "" {
		sourceType = "unknown"
	}
	m.ingestTotal.WithLabelValues(service, sourceType).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
