package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
	"github.com/kirillkom/smart-document-classifier/internal/core/ports"
)

type UploadDocumentUseCase struct {
	lifecycle  *LifecycleManager
	storage    ports.ObjectStorage
	queue      ports.MessageQueue
	normalizer ports.TextNormalizer
	scorer     ports.DocumentScorer

	maxFileSize    int64
	defaultBackend string
}

func NewUploadDocumentUseCase(
	lifecycle *LifecycleManager,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	normalizer ports.TextNormalizer,
	scorer ports.DocumentScorer,
	maxFileSize int64,
	defaultBackend string,
) *UploadDocumentUseCase {
	return &UploadDocumentUseCase{
		lifecycle:      lifecycle,
		storage:        storage,
		queue:          queue,
		normalizer:     normalizer,
		scorer:         scorer,
		maxFileSize:    maxFileSize,
		defaultBackend: defaultBackend,
	}
}

// Upload runs the single-file path: validate, store, extract, create the
// record, then classify synchronously when requested. Extraction failures
// propagate before any record exists; classification failures leave the
// created record in place and, when transient, queue a worker retry.
func (uc *UploadDocumentUseCase) Upload(ctx context.Context, in ports.UploadInput) (*domain.Document, *domain.ClassificationResult, error) {
	if err := uc.validate(in); err != nil {
		return nil, nil, err
	}
	backendKey := in.BackendKey
	if backendKey == "" {
		backendKey = uc.defaultBackend
	}

	text, warnings, err := uc.normalizer.Normalize(in.Data, in.Format)
	if err != nil {
		return nil, nil, err
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(in.Filename))
	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(in.Data)); err != nil {
		return nil, nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc, err := uc.lifecycle.Create(ctx, CreateInput{
		ID:          id,
		Filename:    in.Filename,
		Format:      in.Format,
		StoragePath: storageKey,
		FileSize:    int64(len(in.Data)),
		Text:        text,
		Warnings:    warnings,
	})
	if err != nil {
		_ = uc.storage.Delete(ctx, storageKey)
		return nil, nil, err
	}

	if !in.AutoClassify {
		return doc, nil, nil
	}

	result, err := uc.scorer.Classify(ctx, text, backendKey)
	if err != nil {
		uc.lifecycle.MarkClassificationFailed(ctx, doc.ID, err)
		uc.enqueueRetry(ctx, doc.ID, backendKey, err)
		return doc, nil, err
	}
	if err := uc.lifecycle.ApplyClassification(ctx, doc.ID, result); err != nil {
		return doc, nil, err
	}
	ApplyToDocument(doc, result)
	return doc, &result, nil
}

// enqueueRetry hands a transient classification failure to the worker for a
// later attempt. The caller still gets the error; the job is best effort, so
// a publish failure is only logged. The request context may already be past
// its deadline when the failure was a timeout.
func (uc *UploadDocumentUseCase) enqueueRetry(ctx context.Context, documentID, backendKey string, cause error) {
	transient := domain.IsKind(cause, domain.ErrBackendUnavailable) ||
		domain.IsKind(cause, domain.ErrClassificationTimeout) ||
		domain.IsKind(cause, domain.ErrTemporary)
	if !transient {
		return
	}
	job := domain.ClassifyJob{DocumentID: documentID, BackendKey: backendKey, EnqueuedAt: time.Now().UTC()}
	if err := uc.queue.PublishClassifyRequested(context.WithoutCancel(ctx), job); err != nil {
		slog.Warn("classify_retry_enqueue_failed", "document_id", documentID, "error", err)
	}
}

func (uc *UploadDocumentUseCase) validate(in ports.UploadInput) error {
	if len(in.Data) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("file is empty"))
	}
	if uc.maxFileSize > 0 && int64(len(in.Data)) > uc.maxFileSize {
		return domain.WrapError(domain.ErrInvalidInput, "upload",
			fmt.Errorf("file of %d bytes exceeds limit of %d", len(in.Data), uc.maxFileSize))
	}
	if in.Format == "" {
		return domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("file format is required"))
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
