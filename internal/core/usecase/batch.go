package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
	"github.com/kirillkom/smart-document-classifier/internal/core/ports"
)

// BatchUploadUseCase runs the bulk pipeline: one concurrent unit per file,
// extraction unbounded, classification gated by a counting permit because
// model inference is the scarce resource. Failures stay inside their file's
// outcome; the batch always runs to completion.
type BatchUploadUseCase struct {
	lifecycle  *LifecycleManager
	storage    ports.ObjectStorage
	normalizer ports.TextNormalizer
	scorer     ports.DocumentScorer

	permits         *semaphore.Weighted
	maxFiles        int
	maxFileSize     int64
	classifyTimeout time.Duration
	defaultBackend  string
}

func NewBatchUploadUseCase(
	lifecycle *LifecycleManager,
	storage ports.ObjectStorage,
	normalizer ports.TextNormalizer,
	scorer ports.DocumentScorer,
	maxConcurrency int64,
	maxFiles int,
	maxFileSize int64,
	classifyTimeout time.Duration,
	defaultBackend string,
) *BatchUploadUseCase {
	if maxConcurrency <= 0 {
		maxConcurrency = 2
	}
	return &BatchUploadUseCase{
		lifecycle:       lifecycle,
		storage:         storage,
		normalizer:      normalizer,
		scorer:          scorer,
		permits:         semaphore.NewWeighted(maxConcurrency),
		maxFiles:        maxFiles,
		maxFileSize:     maxFileSize,
		classifyTimeout: classifyTimeout,
		defaultBackend:  defaultBackend,
	}
}

// RunBatch rejects oversized batches before touching any file; the rejection
// is a single validation error, never per-file outcomes. Outcomes keep input
// order regardless of completion order.
func (uc *BatchUploadUseCase) RunBatch(ctx context.Context, files []domain.FileInput, backendKey string, autoClassify bool) (domain.BatchReport, error) {
	if len(files) == 0 {
		return domain.BatchReport{}, domain.WrapError(domain.ErrInvalidInput, "run batch", errors.New("no files provided"))
	}
	if uc.maxFiles > 0 && len(files) > uc.maxFiles {
		return domain.BatchReport{}, domain.WrapError(domain.ErrInvalidInput, "run batch",
			fmt.Errorf("batch of %d files exceeds limit of %d", len(files), uc.maxFiles))
	}
	if backendKey == "" {
		backendKey = uc.defaultBackend
	}

	start := time.Now()
	outcomes := make([]domain.FileOutcome, len(files))
	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(idx int, file domain.FileInput) {
			defer wg.Done()
			outcomes[idx] = uc.processFile(ctx, file, backendKey, autoClassify)
		}(i, file)
	}
	wg.Wait()

	report := domain.BatchReport{
		TotalFiles:     len(files),
		ElapsedSeconds: time.Since(start).Seconds(),
		Outcomes:       outcomes,
	}
	for _, outcome := range outcomes {
		if outcome.Status == domain.OutcomeError {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}
	return report, nil
}

func (uc *BatchUploadUseCase) processFile(ctx context.Context, file domain.FileInput, backendKey string, autoClassify bool) domain.FileOutcome {
	outcome := domain.FileOutcome{Filename: file.Filename}
	fail := func(err error) domain.FileOutcome {
		outcome.Status = domain.OutcomeError
		outcome.Error = err.Error()
		return outcome
	}

	format := file.Format
	if format == "" {
		derived, ok := domain.FormatFromFilename(file.Filename)
		if !ok {
			return fail(domain.WrapError(domain.ErrInvalidInput, "validate file",
				fmt.Errorf("unsupported file type for %q", file.Filename)))
		}
		format = derived
	}
	if len(file.Data) == 0 {
		return fail(domain.WrapError(domain.ErrInvalidInput, "validate file", errors.New("file is empty")))
	}
	if uc.maxFileSize > 0 && int64(len(file.Data)) > uc.maxFileSize {
		return fail(domain.WrapError(domain.ErrInvalidInput, "validate file",
			fmt.Errorf("file of %d bytes exceeds limit of %d", len(file.Data), uc.maxFileSize)))
	}

	text, warnings, err := uc.normalizer.Normalize(file.Data, format)
	if err != nil {
		return fail(err)
	}
	outcome.Warnings = warnings

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(file.Filename))
	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(file.Data)); err != nil {
		return fail(fmt.Errorf("save to object storage: %w", err))
	}

	doc, err := uc.lifecycle.Create(ctx, CreateInput{
		ID:          id,
		Filename:    file.Filename,
		Format:      format,
		StoragePath: storageKey,
		FileSize:    int64(len(file.Data)),
		Text:        text,
		Warnings:    warnings,
	})
	if err != nil {
		_ = uc.storage.Delete(ctx, storageKey)
		return fail(err)
	}
	outcome.DocumentID = doc.ID

	if !autoClassify {
		outcome.Status = statusForWarnings(outcome.Warnings)
		return outcome
	}
	if strings.TrimSpace(text) == "" {
		// Classification was requested but there is nothing to score. The
		// record persists; only this file's outcome fails.
		return fail(domain.WrapError(domain.ErrNoClassifiableText, "classify document",
			errors.New("document has no extracted text")))
	}

	result, err := uc.classifyGated(ctx, text, backendKey)
	if err != nil {
		// The created record persists: extraction success is not rolled
		// back by a classification failure.
		uc.lifecycle.MarkClassificationFailed(ctx, doc.ID, err)
		return fail(err)
	}
	if err := uc.lifecycle.ApplyClassification(ctx, doc.ID, result); err != nil {
		return fail(err)
	}

	if result.WasChunked {
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("document of %d tokens exceeded the backend input limit and was scored in %d chunks",
				result.TokenCount, result.ChunksProcessed))
	}
	outcome.Classification = &domain.ClassificationSummary{
		PredictedCategory: result.PredictedCategory,
		ConfidenceScore:   result.ConfidenceScore,
		BackendKey:        result.BackendKey,
		ChunksProcessed:   result.ChunksProcessed,
		WasChunked:        result.WasChunked,
	}
	outcome.Status = statusForWarnings(outcome.Warnings)
	return outcome
}

// classifyGated acquires a classification permit and scores under the
// per-file deadline. The permit is released on every exit path.
func (uc *BatchUploadUseCase) classifyGated(ctx context.Context, text, backendKey string) (domain.ClassificationResult, error) {
	classifyCtx := ctx
	if uc.classifyTimeout > 0 {
		var cancel context.CancelFunc
		classifyCtx, cancel = context.WithTimeout(ctx, uc.classifyTimeout)
		defer cancel()
	}

	if err := uc.permits.Acquire(classifyCtx, 1); err != nil {
		if errors.Is(classifyCtx.Err(), context.DeadlineExceeded) {
			return domain.ClassificationResult{}, domain.WrapError(
				domain.ErrClassificationTimeout, "acquire classification permit", err)
		}
		return domain.ClassificationResult{}, fmt.Errorf("acquire classification permit: %w", err)
	}
	defer uc.permits.Release(1)

	return uc.scorer.Classify(classifyCtx, text, backendKey)
}

func statusForWarnings(warnings []string) domain.OutcomeStatus {
	if len(warnings) > 0 {
		return domain.OutcomeWarning
	}
	return domain.OutcomeSuccess
}
