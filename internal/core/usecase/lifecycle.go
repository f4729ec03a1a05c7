package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
	"github.com/kirillkom/smart-document-classifier/internal/core/ports"
)

// LifecycleManager owns every mutation of a document record's
// classification-related fields. Nothing else writes them.
type LifecycleManager struct {
	repo   ports.DocumentRepository
	logger *slog.Logger
}

func NewLifecycleManager(repo ports.DocumentRepository, logger *slog.Logger) *LifecycleManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleManager{repo: repo, logger: logger}
}

// CreateInput carries the extraction output plus file metadata for a new
// record. Text may be empty; an empty-text record is valid and simply never
// auto-classifies.
type CreateInput struct {
	ID          string
	Filename    string
	Format      domain.Format
	StoragePath string
	FileSize    int64
	Text        string
	Warnings    []string
}

func (m *LifecycleManager) Create(ctx context.Context, in CreateInput) (*domain.Document, error) {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	doc := &domain.Document{
		ID:                 id,
		OriginalFilename:   in.Filename,
		StoragePath:        in.StoragePath,
		FileSize:           in.FileSize,
		Format:             in.Format,
		ContentText:        in.Text,
		ExtractionWarnings: in.Warnings,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := m.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}
	return doc, nil
}

// ApplyClassification replaces the whole classification field group and bumps
// updated_at. Extraction fields are untouched. Calling it again with the same
// result is a no-op apart from timestamps, and re-classification with a
// different backend simply repeats the replace.
func (m *LifecycleManager) ApplyClassification(ctx context.Context, documentID string, result domain.ClassificationResult) error {
	if err := m.repo.ApplyClassification(ctx, documentID, result); err != nil {
		return fmt.Errorf("apply classification: %w", err)
	}
	return nil
}

// MarkClassificationFailed records the failure for operators without touching
// the record: a prior successful classification stays intact, and the caller
// surfaces the error itself.
func (m *LifecycleManager) MarkClassificationFailed(_ context.Context, documentID string, reason error) {
	m.logger.Warn("classification_failed", "document_id", documentID, "error", reason)
}

// ApplyToDocument mirrors the repository-side replace onto an in-memory
// record, for response payloads built right after classification.
func ApplyToDocument(doc *domain.Document, result domain.ClassificationResult) {
	now := time.Now().UTC()
	doc.PredictedCategory = result.PredictedCategory
	doc.ConfidenceScore = result.ConfidenceScore
	doc.AllScores = result.AllScores
	doc.InferenceSeconds = result.InferenceSeconds
	doc.BackendKey = result.BackendKey
	doc.BackendName = result.BackendName
	doc.ModelID = result.ModelID
	doc.TokenCount = result.TokenCount
	doc.ChunksProcessed = result.ChunksProcessed
	doc.WasChunked = result.WasChunked
	doc.IsClassified = true
	doc.ClassifiedAt = &now
	doc.UpdatedAt = now
}
