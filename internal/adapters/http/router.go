package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
	"github.com/kirillkom/smart-document-classifier/internal/core/ports"
	"github.com/kirillkom/smart-document-classifier/internal/observability/metrics"
)

const multipartMemoryLimit = 32 << 20

type Router struct {
	uploader   ports.DocumentUploader
	batch      ports.BatchRunner
	classifier ports.DocumentClassifier
	reader     ports.DocumentReader
	remover    ports.DocumentRemover
	catalog    ports.BackendCatalog

	defaultBackend string
	serverMetrics  *metrics.HTTPServerMetrics

	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
}

type RouterOptions struct {
	DefaultBackend string
	ServerMetrics  *metrics.HTTPServerMetrics
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

func NewRouter(
	uploader ports.DocumentUploader,
	batch ports.BatchRunner,
	classifier ports.DocumentClassifier,
	reader ports.DocumentReader,
	remover ports.DocumentRemover,
	catalog ports.BackendCatalog,
	options RouterOptions,
) *Router {
	return &Router{
		uploader:       uploader,
		batch:          batch,
		classifier:     classifier,
		reader:         reader,
		remover:        remover,
		catalog:        catalog,
		defaultBackend: options.DefaultBackend,
		serverMetrics:  options.ServerMetrics,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
		maxInFlight:    options.MaxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.documents)
	mux.HandleFunc("/v1/documents/bulk", rt.bulkUpload)
	mux.HandleFunc("/v1/documents/", rt.documentByID)
	mux.HandleFunc("/v1/backends", rt.listBackends)

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	handler = backpressureMiddleware(handler, rt.maxInFlight, 50*time.Millisecond)
	if rt.serverMetrics != nil {
		mux.Handle("/metrics", rt.serverMetrics.Handler())
		handler = rt.serverMetrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) documents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.uploadDocument(w, r)
	case http.MethodGet:
		rt.listDocuments(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read uploaded file"})
		return
	}

	format, ok := domain.FormatFromFilename(fileHeader.Filename)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "unsupported file extension: " + fileHeader.Filename,
		})
		return
	}

	doc, result, err := rt.uploader.Upload(r.Context(), ports.UploadInput{
		Filename:     fileHeader.Filename,
		Format:       format,
		Data:         data,
		BackendKey:   rt.backendKey(r.FormValue("backend")),
		AutoClassify: parseAutoClassify(r.FormValue("auto_classify")),
	})
	rt.recordUpload(format, len(data), err)
	if err != nil {
		rt.writeUploadError(w, doc, err)
		return
	}
	rt.recordExtractionWarnings(format, len(doc.ExtractionWarnings))
	if result != nil {
		rt.recordClassification(result.BackendKey, result, nil)
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) bulkUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}

	headers := r.MultipartForm.File["files"]
	files := make([]domain.FileInput, 0, len(headers))
	for _, header := range headers {
		data, err := readMultipartFile(header)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "failed to read uploaded file " + header.Filename,
			})
			return
		}
		format, _ := domain.FormatFromFilename(header.Filename)
		files = append(files, domain.FileInput{
			Filename: header.Filename,
			Format:   format,
			Data:     data,
		})
	}

	report, err := rt.batch.RunBatch(
		r.Context(),
		files,
		rt.backendKey(r.FormValue("backend")),
		parseAutoClassify(r.FormValue("auto_classify")),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.serverMetrics != nil {
		for i, outcome := range report.Outcomes {
			rt.serverMetrics.RecordBatchOutcome("api", string(outcome.Status))
			warnings := len(outcome.Warnings)
			if outcome.Classification != nil && outcome.Classification.WasChunked {
				// The chunking note is appended after extraction.
				warnings--
			}
			rt.recordExtractionWarnings(files[i].Format, warnings)
		}
	}

	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) documentByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if rest == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	if id, ok := strings.CutSuffix(rest, "/classify"); ok {
		rt.classifyDocument(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		rt.getDocument(w, r, rest)
	case http.MethodDelete:
		rt.deleteDocument(w, r, rest)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.reader.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     len(docs),
	})
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request, id string) {
	if err := rt.remover.Remove(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) classifyDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	var req struct {
		Backend string `json:"backend"`
	}
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}

	backend := rt.backendKey(req.Backend)
	result, err := rt.classifier.ClassifyByID(r.Context(), id, backend)
	rt.recordClassification(backend, &result, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listBackends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"backends": rt.catalog.ListBackends(),
		"default":  rt.defaultBackend,
	})
}

func (rt *Router) backendKey(requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return rt.defaultBackend
	}
	return requested
}

func (rt *Router) writeUploadError(w http.ResponseWriter, doc *domain.Document, err error) {
	status := mapErrorToHTTPStatus(err)
	payload := map[string]string{"error": err.Error()}
	if doc != nil {
		// The record survived; only classification failed.
		payload["document_id"] = doc.ID
	}
	writeJSON(w, status, payload)
}

func (rt *Router) recordUpload(format domain.Format, sizeBytes int, err error) {
	if rt.serverMetrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	rt.serverMetrics.RecordUpload("api", string(format), status, int64(sizeBytes))
}

func (rt *Router) recordExtractionWarnings(format domain.Format, count int) {
	if rt.serverMetrics == nil {
		return
	}
	rt.serverMetrics.RecordExtractionWarnings("api", string(format), count)
}

// recordClassification labels failures with the backend the caller asked
// for; the zero-value result carries no backend identity.
func (rt *Router) recordClassification(backendKey string, result *domain.ClassificationResult, err error) {
	if rt.serverMetrics == nil {
		return
	}
	if err != nil {
		rt.serverMetrics.RecordClassification("api", backendKey, "error", 0, 0)
		return
	}
	duration := time.Duration(result.InferenceSeconds * float64(time.Second))
	rt.serverMetrics.RecordClassification("api", result.BackendKey, "success", result.ChunksProcessed, duration)
}

func parseAutoClassify(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return true
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return true
	}
	return parsed
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
