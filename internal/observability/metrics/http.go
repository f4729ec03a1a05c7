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

	uploadsTotal            *prometheus.CounterVec
	uploadBytes             *prometheus.HistogramVec
	classificationsTotal    *prometheus.CounterVec
	classificationDuration  *prometheus.HistogramVec
	classificationChunks    *prometheus.HistogramVec
	batchFilesTotal         *prometheus.CounterVec
	extractionWarningsTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sdc",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sdc",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sdc",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sdc",
			Subsystem: "ingest",
			Name:      "uploads_total",
			Help:      "Total document uploads by format and status.",
		},
		[]string{"service", "format", "status"},
	)
	uploadBytes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sdc",
			Subsystem: "ingest",
			Name:      "upload_bytes",
			Help:      "Distribution of uploaded file sizes in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"service", "format"},
	)
	classificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sdc",
			Subsystem: "classify",
			Name:      "classifications_total",
			Help:      "Total classification runs by backend and status.",
		},
		[]string{"service", "backend", "status"},
	)
	classificationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sdc",
			Subsystem: "classify",
			Name:      "duration_seconds",
			Help:      "Classification duration in seconds including inference calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"service", "backend"},
	)
	classificationChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sdc",
			Subsystem: "classify",
			Name:      "chunks_processed",
			Help:      "Distribution of scored chunks per classification.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "backend"},
	)
	batchFilesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sdc",
			Subsystem: "batch",
			Name:      "files_total",
			Help:      "Total files processed by bulk uploads by outcome.",
		},
		[]string{"service", "outcome"},
	)
	extractionWarningsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sdc",
			Subsystem: "ingest",
			Name:      "extraction_warnings_total",
			Help:      "Total extraction warnings emitted by format.",
		},
		[]string{"service", "format"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		uploadsTotal,
		uploadBytes,
		classificationsTotal,
		classificationDuration,
		classificationChunks,
		batchFilesTotal,
		extractionWarningsTotal,
	)

	return &HTTPServerMetrics{
		registry:                registry,
		requestTotal:            requestTotal,
		requestDuration:         requestDuration,
		requestInFlight:         requestInFlight,
		uploadsTotal:            uploadsTotal,
		uploadBytes:             uploadBytes,
		classificationsTotal:    classificationsTotal,
		classificationDuration:  classificationDuration,
		classificationChunks:    classificationChunks,
		batchFilesTotal:         batchFilesTotal,
		extractionWarningsTotal: extractionWarningsTotal,
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
	case path == "/v1/documents/bulk":
		return path
	case strings.HasSuffix(path, "/classify") && strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}/classify"
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordUpload(service, format, status string, sizeBytes int64) {
	if format == "" {
		format = "unknown"
	}
	m.uploadsTotal.WithLabelValues(service, format, status).Inc()
	if sizeBytes > 0 {
		m.uploadBytes.WithLabelValues(service, format).Observe(float64(sizeBytes))
	}
}

func (m *HTTPServerMetrics) RecordClassification(service, backend, status string, chunks int, duration time.Duration) {
	if backend == "" {
		backend = "unknown"
	}
	m.classificationsTotal.WithLabelValues(service, backend, status).Inc()
	m.classificationDuration.WithLabelValues(service, backend).Observe(duration.Seconds())
	if chunks > 0 {
		m.classificationChunks.WithLabelValues(service, backend).Observe(float64(chunks))
	}
}

func (m *HTTPServerMetrics) RecordBatchOutcome(service, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.batchFilesTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordExtractionWarnings(service, format string, count int) {
	if count <= 0 {
		return
	}
	m.extractionWarningsTotal.WithLabelValues(service, format).Add(float64(count))
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
