package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/smart-document-classifier/internal/core/ports"
)

// RemoveDocumentUseCase deletes a record together with its stored bytes.
type RemoveDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	logger  *slog.Logger
}

func NewRemoveDocumentUseCase(repo ports.DocumentRepository, storage ports.ObjectStorage, logger *slog.Logger) *RemoveDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoveDocumentUseCase{repo: repo, storage: storage, logger: logger}
}

func (uc *RemoveDocumentUseCase) Remove(ctx context.Context, id string) error {
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}
	// An orphaned blob is recoverable, a dangling record is not: delete the
	// record last.
	if err := uc.storage.Delete(ctx, doc.StoragePath); err != nil {
		uc.logger.Warn("delete_stored_file_failed", "document_id", id, "storage_path", doc.StoragePath, "error", err)
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document record: %w", err)
	}
	return nil
}
