package ports

import (
	"context"
	"io"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
)

// DocumentRepository persists and reads document records.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
	ApplyClassification(ctx context.Context, id string, result domain.ClassificationResult) error
}

// ObjectStorage stores source documents. Classification always works from
// the persisted content text, so nothing reads the raw bytes back.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes deferred classification jobs.
type MessageQueue interface {
	PublishClassifyRequested(ctx context.Context, job domain.ClassifyJob) error
	SubscribeClassifyRequested(ctx context.Context, handler func(context.Context, domain.ClassifyJob) error) error
}

// TextNormalizer turns raw bytes of a declared format into clean text plus
// non-fatal warnings.
type TextNormalizer interface {
	Normalize(data []byte, format domain.Format) (string, []string, error)
}

// DocumentScorer runs text through a registered backend and returns the
// aggregated label distribution.
type DocumentScorer interface {
	Classify(ctx context.Context, text, backendKey string) (domain.ClassificationResult, error)
}

// BackendCatalog exposes the read-only set of registered backends.
type BackendCatalog interface {
	ListBackends() []domain.BackendDescriptor
}
