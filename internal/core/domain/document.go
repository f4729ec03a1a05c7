package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Format identifies a supported upload format.
type Format string

const (
	FormatTXT      Format = "txt"
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatXLSX     Format = "xlsx"
	FormatHTML     Format = "html"
)

// SupportedFormats lists every format the normalizer can decode.
func SupportedFormats() []Format {
	return []Format{FormatTXT, FormatMarkdown, FormatPDF, FormatDOCX, FormatXLSX, FormatHTML}
}

// FormatFromFilename derives the declared format from a filename extension.
// The second return is false when the extension maps to no supported format.
func FormatFromFilename(name string) (Format, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "txt", "text", "log":
		return FormatTXT, true
	case "md", "markdown":
		return FormatMarkdown, true
	case "pdf":
		return FormatPDF, true
	case "docx":
		return FormatDOCX, true
	case "xlsx":
		return FormatXLSX, true
	case "html", "htm":
		return FormatHTML, true
	default:
		return "", false
	}
}

// Document is the persisted record for one uploaded file.
// Classification fields stay empty until a classification is applied and are
// always replaced together.
type Document struct {
	ID                 string   `json:"id"`
	OriginalFilename   string   `json:"original_filename"`
	StoragePath        string   `json:"storage_path"`
	FileSize           int64    `json:"file_size"`
	Format             Format   `json:"format"`
	ContentText        string   `json:"content_text,omitempty"`
	ExtractionWarnings []string `json:"extraction_warnings,omitempty"`

	PredictedCategory string             `json:"predicted_category,omitempty"`
	ConfidenceScore   float64            `json:"confidence_score,omitempty"`
	AllScores         map[string]float64 `json:"all_scores,omitempty"`
	InferenceSeconds  float64            `json:"inference_seconds,omitempty"`
	BackendKey        string             `json:"backend_key,omitempty"`
	BackendName       string             `json:"backend_name,omitempty"`
	ModelID           string             `json:"model_id,omitempty"`
	TokenCount        int                `json:"token_count,omitempty"`
	ChunksProcessed   int                `json:"chunks_processed,omitempty"`
	WasChunked        bool               `json:"was_chunked,omitempty"`

	IsClassified bool       `json:"is_classified"`
	ClassifiedAt *time.Time `json:"classified_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ClassificationResult is the scorer output for one document.
type ClassificationResult struct {
	PredictedCategory string             `json:"predicted_category"`
	ConfidenceScore   float64            `json:"confidence_score"`
	AllScores         map[string]float64 `json:"all_scores"`
	BackendKey        string             `json:"backend_key"`
	BackendName       string             `json:"backend_name"`
	ModelID           string             `json:"model_id"`
	TokenCount        int                `json:"token_count"`
	ChunksProcessed   int                `json:"chunks_processed"`
	WasChunked        bool               `json:"was_chunked"`
	InferenceSeconds  float64            `json:"inference_seconds"`
}

// BackendDescriptor is a read-only registry entry for one classifier backend.
type BackendDescriptor struct {
	Key         string `json:"key" yaml:"key"`
	Name        string `json:"name" yaml:"name"`
	ModelID     string `json:"model_id" yaml:"model_id"`
	MaxTokens   int    `json:"max_tokens" yaml:"max_tokens"`
	Description string `json:"description,omitempty" yaml:"description"`
}
