package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
	"github.com/kirillkom/smart-document-classifier/internal/core/ports"
)

// ClassifyDocumentUseCase (re)classifies an already stored document. It
// serves both the worker's deferred jobs and the reclassify endpoint; a new
// backend's result entirely replaces the previous one.
type ClassifyDocumentUseCase struct {
	repo      ports.DocumentRepository
	lifecycle *LifecycleManager
	scorer    ports.DocumentScorer

	defaultBackend string
}

func NewClassifyDocumentUseCase(
	repo ports.DocumentRepository,
	lifecycle *LifecycleManager,
	scorer ports.DocumentScorer,
	defaultBackend string,
) *ClassifyDocumentUseCase {
	return &ClassifyDocumentUseCase{
		repo:           repo,
		lifecycle:      lifecycle,
		scorer:         scorer,
		defaultBackend: defaultBackend,
	}
}

func (uc *ClassifyDocumentUseCase) ClassifyByID(ctx context.Context, documentID, backendKey string) (domain.ClassificationResult, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("fetch document by id: %w", err)
	}
	if backendKey == "" {
		backendKey = uc.defaultBackend
	}
	if strings.TrimSpace(doc.ContentText) == "" {
		return domain.ClassificationResult{}, domain.WrapError(
			domain.ErrNoClassifiableText, "classify document", errors.New("document has no extracted text"))
	}

	result, err := uc.scorer.Classify(ctx, doc.ContentText, backendKey)
	if err != nil {
		uc.lifecycle.MarkClassificationFailed(ctx, documentID, err)
		return domain.ClassificationResult{}, err
	}
	if err := uc.lifecycle.ApplyClassification(ctx, documentID, result); err != nil {
		return domain.ClassificationResult{}, err
	}
	return result, nil
}
