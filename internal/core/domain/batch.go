package domain

// FileInput is one file in a bulk upload call.
type FileInput struct {
	Filename string
	Format   Format
	Data     []byte
}

// OutcomeStatus tags the per-file result of a batch.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeWarning OutcomeStatus = "warning"
	OutcomeError   OutcomeStatus = "error"
)

// ClassificationSummary is the compact per-file classification view inside a
// batch report.
type ClassificationSummary struct {
	PredictedCategory string  `json:"predicted_category"`
	ConfidenceScore   float64 `json:"confidence_score"`
	BackendKey        string  `json:"backend_key"`
	ChunksProcessed   int     `json:"chunks_processed"`
	WasChunked        bool    `json:"was_chunked"`
}

// FileOutcome is the result of one file's pipeline within a batch. Outcomes
// keep input order so callers can correlate by position as well as filename.
type FileOutcome struct {
	Filename       string                 `json:"filename"`
	Status         OutcomeStatus          `json:"status"`
	DocumentID     string                 `json:"document_id,omitempty"`
	Classification *ClassificationSummary `json:"classification,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Warnings       []string               `json:"warnings,omitempty"`
}

// BatchReport summarizes one bulk upload call. It lives only for the duration
// of the call and its response; it is never persisted.
type BatchReport struct {
	TotalFiles     int           `json:"total_files"`
	Succeeded      int           `json:"succeeded"`
	Failed         int           `json:"failed"`
	ElapsedSeconds float64       `json:"elapsed_seconds"`
	Outcomes       []FileOutcome `json:"outcomes"`
}
