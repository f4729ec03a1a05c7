package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
)

func newBatchUC(repo *fakeRepo, storage *fakeStorage, normalizer *fakeNormalizer, scorer *fakeScorer, concurrency int64, timeout time.Duration) *BatchUploadUseCase {
	return NewBatchUploadUseCase(
		NewLifecycleManager(repo, nil),
		storage, normalizer, scorer,
		concurrency, 10, 1024, timeout, "bart-large-mnli",
	)
}

func textFile(name, content string) domain.FileInput {
	return domain.FileInput{Filename: name, Format: domain.FormatTXT, Data: []byte(content)}
}

func TestRunBatchRejectsEmptyBatch(t *testing.T) {
	uc := newBatchUC(newFakeRepo(), newFakeStorage(), &fakeNormalizer{}, &fakeScorer{}, 2, time.Second)
	_, err := uc.RunBatch(context.Background(), nil, "", true)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRunBatchRejectsOversizedBatchUpfront(t *testing.T) {
	repo := newFakeRepo()
	uc := newBatchUC(repo, newFakeStorage(), &fakeNormalizer{}, &fakeScorer{}, 2, time.Second)

	files := make([]domain.FileInput, 11)
	for i := range files {
		files[i] = textFile(fmt.Sprintf("f%d.txt", i), "content")
	}
	_, err := uc.RunBatch(context.Background(), files, "", true)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for oversized batch, got %v", err)
	}
	if len(repo.docs) != 0 {
		t.Fatalf("oversized batch must not touch any file")
	}
}

func TestRunBatchPreservesInputOrder(t *testing.T) {
	scorer := &fakeScorer{result: domain.ClassificationResult{
		PredictedCategory: "General Article",
		ConfidenceScore:   0.5,
	}}
	uc := newBatchUC(newFakeRepo(), newFakeStorage(), &fakeNormalizer{}, scorer, 2, time.Second)

	files := []domain.FileInput{
		textFile("a.txt", "alpha"),
		textFile("b.txt", "beta"),
		textFile("c.txt", "gamma"),
	}
	report, err := uc.RunBatch(context.Background(), files, "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalFiles != 3 || len(report.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %+v", report)
	}
	for i, file := range files {
		if report.Outcomes[i].Filename != file.Filename {
			t.Fatalf("outcome %d out of order: %q", i, report.Outcomes[i].Filename)
		}
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	repo := newFakeRepo()
	scorer := &fakeScorer{
		result: domain.ClassificationResult{PredictedCategory: "General Article", ConfidenceScore: 0.5},
		errFor: map[string]error{
			"bad": domain.WrapError(domain.ErrBackendUnavailable, "score chunk", errors.New("down")),
		},
	}
	uc := newBatchUC(repo, newFakeStorage(), &fakeNormalizer{}, scorer, 2, time.Second)

	report, err := uc.RunBatch(context.Background(), []domain.FileInput{
		textFile("ok1.txt", "good"),
		textFile("broken.txt", "bad"),
		textFile("ok2.txt", "also good"),
	}, "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Succeeded != 2 || report.Failed != 1 {
		t.Fatalf("expected 2 succeeded / 1 failed, got %d/%d", report.Succeeded, report.Failed)
	}
	if report.Outcomes[0].Status != domain.OutcomeSuccess {
		t.Fatalf("first outcome: %+v", report.Outcomes[0])
	}
	if report.Outcomes[1].Status != domain.OutcomeError || report.Outcomes[1].Error == "" {
		t.Fatalf("middle outcome should fail with message: %+v", report.Outcomes[1])
	}
	if report.Outcomes[2].Status != domain.OutcomeSuccess {
		t.Fatalf("last outcome: %+v", report.Outcomes[2])
	}
	// The failed file's record still exists: extraction succeeded.
	if report.Outcomes[1].DocumentID == "" {
		t.Fatalf("expected document id on failed outcome")
	}
	if _, err := repo.GetByID(context.Background(), report.Outcomes[1].DocumentID); err != nil {
		t.Fatalf("record of failed classification must persist: %v", err)
	}
}

func TestRunBatchUnsupportedFileFailsAlone(t *testing.T) {
	scorer := &fakeScorer{result: domain.ClassificationResult{PredictedCategory: "General Article"}}
	uc := newBatchUC(newFakeRepo(), newFakeStorage(), &fakeNormalizer{}, scorer, 2, time.Second)

	report, err := uc.RunBatch(context.Background(), []domain.FileInput{
		{Filename: "image.png", Data: []byte{0x89, 0x50}},
		textFile("fine.txt", "text"),
	}, "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Outcomes[0].Status != domain.OutcomeError {
		t.Fatalf("expected unsupported file rejected, got %+v", report.Outcomes[0])
	}
	if report.Outcomes[1].Status != domain.OutcomeSuccess {
		t.Fatalf("expected supported file to succeed, got %+v", report.Outcomes[1])
	}
}

func TestRunBatchLimitsClassificationConcurrency(t *testing.T) {
	block := make(chan struct{})
	scorer := &fakeScorer{
		result: domain.ClassificationResult{PredictedCategory: "General Article"},
		block:  block,
	}
	uc := newBatchUC(newFakeRepo(), newFakeStorage(), &fakeNormalizer{}, scorer, 2, 5*time.Second)

	done := make(chan domain.BatchReport, 1)
	go func() {
		report, _ := uc.RunBatch(context.Background(), []domain.FileInput{
			textFile("a.txt", "one"),
			textFile("b.txt", "two"),
			textFile("c.txt", "three"),
			textFile("d.txt", "four"),
		}, "", true)
		done <- report
	}()

	// Let the goroutines reach the scorer, then release them all.
	time.Sleep(50 * time.Millisecond)
	close(block)

	report := <-done
	if report.Failed != 0 {
		t.Fatalf("expected all files to succeed, got %d failures", report.Failed)
	}

	scorer.mu.Lock()
	maxInUse := scorer.maxInUse
	scorer.mu.Unlock()
	if maxInUse > 2 {
		t.Fatalf("expected at most 2 concurrent classifications, observed %d", maxInUse)
	}
}

func TestRunBatchTimesOutStuckClassification(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	scorer := &fakeScorer{block: block}
	uc := newBatchUC(newFakeRepo(), newFakeStorage(), &fakeNormalizer{}, scorer, 1, 30*time.Millisecond)

	report, err := uc.RunBatch(context.Background(), []domain.FileInput{
		textFile("slow.txt", "never returns"),
	}, "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Outcomes[0].Status != domain.OutcomeError {
		t.Fatalf("expected timeout outcome, got %+v", report.Outcomes[0])
	}
}

func TestRunBatchEmptyTextFileFailsWhenClassifying(t *testing.T) {
	repo := newFakeRepo()
	scorer := &fakeScorer{}
	normalizer := &fakeNormalizer{
		perFile:  map[string]string{"scan bytes": ""},
		warnings: []string{"no readable text content"},
	}
	uc := newBatchUC(repo, newFakeStorage(), normalizer, scorer, 2, time.Second)

	report, err := uc.RunBatch(context.Background(), []domain.FileInput{
		textFile("scan.pdf", "scan bytes"),
	}, "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcome := report.Outcomes[0]
	if outcome.Status != domain.OutcomeError {
		t.Fatalf("expected error outcome for empty text, got %+v", outcome)
	}
	if !strings.Contains(outcome.Error, "no classifiable text") {
		t.Fatalf("expected no-classifiable-text message, got %q", outcome.Error)
	}
	if scorer.calls != 0 {
		t.Fatalf("scorer must not run on empty text")
	}
	// Extraction succeeded, so the record still exists.
	if outcome.DocumentID == "" {
		t.Fatalf("expected document id on failed outcome")
	}
	if _, err := repo.GetByID(context.Background(), outcome.DocumentID); err != nil {
		t.Fatalf("record must persist: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("expected the file counted as failed, got %d", report.Failed)
	}
}

func TestRunBatchDeferredClassificationSkipsScorer(t *testing.T) {
	scorer := &fakeScorer{}
	uc := newBatchUC(newFakeRepo(), newFakeStorage(), &fakeNormalizer{}, scorer, 2, time.Second)

	report, err := uc.RunBatch(context.Background(), []domain.FileInput{
		textFile("a.txt", "text"),
	}, "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scorer.calls != 0 {
		t.Fatalf("scorer must not run when auto classification is off")
	}
	if report.Outcomes[0].Status != domain.OutcomeSuccess {
		t.Fatalf("expected success, got %+v", report.Outcomes[0])
	}
	if report.Outcomes[0].Classification != nil {
		t.Fatalf("expected no classification summary, got %+v", report.Outcomes[0].Classification)
	}
}

func TestRunBatchChunkedDocumentGetsWarningStatus(t *testing.T) {
	scorer := &fakeScorer{result: domain.ClassificationResult{
		PredictedCategory: "Academic Paper",
		ConfidenceScore:   0.6,
		TokenCount:        1600,
		ChunksProcessed:   2,
		WasChunked:        true,
	}}
	uc := newBatchUC(newFakeRepo(), newFakeStorage(), &fakeNormalizer{}, scorer, 2, time.Second)

	report, err := uc.RunBatch(context.Background(), []domain.FileInput{
		textFile("long.txt", "very long document"),
	}, "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outcome := report.Outcomes[0]
	if outcome.Status != domain.OutcomeWarning {
		t.Fatalf("expected warning status for chunked document, got %q", outcome.Status)
	}
	if len(outcome.Warnings) != 1 {
		t.Fatalf("expected one chunking warning, got %v", outcome.Warnings)
	}
	if outcome.Classification == nil || !outcome.Classification.WasChunked {
		t.Fatalf("expected chunked classification summary, got %+v", outcome.Classification)
	}
	if report.Succeeded != 1 {
		t.Fatalf("warning outcomes still count as succeeded, got %d", report.Succeeded)
	}
}
