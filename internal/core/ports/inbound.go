package ports

import (
	"context"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
)

// DocumentUploader is the inbound contract for single-file upload.
type DocumentUploader interface {
	Upload(ctx context.Context, in UploadInput) (*domain.Document, *domain.ClassificationResult, error)
}

// UploadInput carries one file plus classification options.
type UploadInput struct {
	Filename     string
	Format       domain.Format
	Data         []byte
	BackendKey   string
	AutoClassify bool
}

// BatchRunner is the inbound contract for bulk upload orchestration.
type BatchRunner interface {
	RunBatch(ctx context.Context, files []domain.FileInput, backendKey string, autoClassify bool) (domain.BatchReport, error)
}

// DocumentClassifier is the inbound contract for (re)classifying a stored
// document, used by both the HTTP reclassify endpoint and the worker.
type DocumentClassifier interface {
	ClassifyByID(ctx context.Context, documentID, backendKey string) (domain.ClassificationResult, error)
}

// DocumentReader is the inbound read model for document records.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
}

// DocumentRemover deletes a record together with its stored bytes.
type DocumentRemover interface {
	Remove(ctx context.Context, id string) error
}
