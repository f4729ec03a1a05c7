package classify

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
)

type fakeBackend struct {
	desc   domain.BackendDescriptor
	scores []map[string]float64
	err    error

	calls      int
	seenChunks []string
}

func (f *fakeBackend) Descriptor() domain.BackendDescriptor {
	return f.desc
}

func (f *fakeBackend) Score(_ context.Context, text string, _ []string) (map[string]float64, error) {
	f.seenChunks = append(f.seenChunks, text)
	if f.err != nil {
		return nil, f.err
	}
	idx := f.calls
	if idx >= len(f.scores) {
		idx = len(f.scores) - 1
	}
	f.calls++
	return f.scores[idx], nil
}

var testLabels = []string{"Technical Documentation", "Business Proposal", "General Article"}

func newTestScorer(t *testing.T, backend Backend) *Scorer {
	t.Helper()
	registry, err := NewRegistry(testLabels, backend)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return NewScorer(registry)
}

func TestClassifyReturnsUnitSumDistribution(t *testing.T) {
	backend := &fakeBackend{
		desc: domain.BackendDescriptor{Key: "fake", Name: "Fake", ModelID: "fake/model", MaxTokens: 100},
		scores: []map[string]float64{
			{"Technical Documentation": 3, "Business Proposal": 1, "General Article": 1},
		},
	}
	scorer := newTestScorer(t, backend)

	result, err := scorer.Classify(context.Background(), "install the library with the package manager", "fake")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sum float64
	for _, v := range result.AllScores {
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Fatalf("expected unit-sum distribution, got %f", sum)
	}
	if result.PredictedCategory != "Technical Documentation" {
		t.Fatalf("expected Technical Documentation, got %q", result.PredictedCategory)
	}
	if math.Abs(result.ConfidenceScore-0.6) > 1e-6 {
		t.Fatalf("expected confidence 0.6, got %f", result.ConfidenceScore)
	}
	if result.ChunksProcessed != 1 || result.WasChunked {
		t.Fatalf("expected single unchunked pass, got chunks=%d chunked=%v", result.ChunksProcessed, result.WasChunked)
	}
	if result.BackendKey != "fake" || result.ModelID != "fake/model" {
		t.Fatalf("expected backend identity on result, got %q %q", result.BackendKey, result.ModelID)
	}
}

func TestClassifyAveragesChunkDistributions(t *testing.T) {
	backend := &fakeBackend{
		desc: domain.BackendDescriptor{Key: "fake", Name: "Fake", ModelID: "fake/model", MaxTokens: 10},
		scores: []map[string]float64{
			{"Technical Documentation": 1, "Business Proposal": 0, "General Article": 0},
			{"Technical Documentation": 0, "Business Proposal": 1, "General Article": 0},
		},
	}
	scorer := newTestScorer(t, backend)

	text := strings.TrimSpace(strings.Repeat("alpha ", 20))
	result, err := scorer.Classify(context.Background(), text, "fake")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ChunksProcessed != 2 || !result.WasChunked {
		t.Fatalf("expected 2 chunks, got %d (chunked=%v)", result.ChunksProcessed, result.WasChunked)
	}
	if math.Abs(result.AllScores["Technical Documentation"]-0.5) > 1e-6 {
		t.Fatalf("expected mean 0.5 for first label, got %f", result.AllScores["Technical Documentation"])
	}
	if math.Abs(result.AllScores["Business Proposal"]-0.5) > 1e-6 {
		t.Fatalf("expected mean 0.5 for second label, got %f", result.AllScores["Business Proposal"])
	}
	if result.TokenCount != 20 {
		t.Fatalf("expected original token count 20, got %d", result.TokenCount)
	}
}

func TestClassifyBreaksTiesByDeclarationOrder(t *testing.T) {
	backend := &fakeBackend{
		desc: domain.BackendDescriptor{Key: "fake", MaxTokens: 100},
		scores: []map[string]float64{
			{"Technical Documentation": 1, "Business Proposal": 1, "General Article": 1},
		},
	}
	scorer := newTestScorer(t, backend)

	result, err := scorer.Classify(context.Background(), "ambiguous text", "fake")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PredictedCategory != testLabels[0] {
		t.Fatalf("expected first declared label on tie, got %q", result.PredictedCategory)
	}
}

func TestClassifyRejectsEmptyText(t *testing.T) {
	backend := &fakeBackend{desc: domain.BackendDescriptor{Key: "fake", MaxTokens: 100}}
	scorer := newTestScorer(t, backend)

	_, err := scorer.Classify(context.Background(), "   \n ", "fake")
	if !domain.IsKind(err, domain.ErrNoClassifiableText) {
		t.Fatalf("expected no classifiable text error, got %v", err)
	}
	if len(backend.seenChunks) != 0 {
		t.Fatalf("backend must not be called for empty text")
	}
}

func TestClassifyUnknownBackend(t *testing.T) {
	backend := &fakeBackend{desc: domain.BackendDescriptor{Key: "fake", MaxTokens: 100}}
	scorer := newTestScorer(t, backend)

	_, err := scorer.Classify(context.Background(), "some text", "missing")
	if !domain.IsKind(err, domain.ErrUnknownBackend) {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
}

func TestClassifyMapsDeadlineToTimeout(t *testing.T) {
	backend := &fakeBackend{
		desc: domain.BackendDescriptor{Key: "fake", MaxTokens: 100},
		err:  context.DeadlineExceeded,
	}
	scorer := newTestScorer(t, backend)

	_, err := scorer.Classify(context.Background(), "some text", "fake")
	if !domain.IsKind(err, domain.ErrClassificationTimeout) {
		t.Fatalf("expected classification timeout, got %v", err)
	}
}

func TestClassifyWrapsBackendFailure(t *testing.T) {
	backend := &fakeBackend{
		desc: domain.BackendDescriptor{Key: "fake", MaxTokens: 100},
		err:  errors.New("connection refused"),
	}
	scorer := newTestScorer(t, backend)

	_, err := scorer.Classify(context.Background(), "some text", "fake")
	if !domain.IsKind(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected backend unavailable, got %v", err)
	}
}

func TestClassifyRejectsDegenerateScores(t *testing.T) {
	backend := &fakeBackend{
		desc: domain.BackendDescriptor{Key: "fake", MaxTokens: 100},
		scores: []map[string]float64{
			{"Technical Documentation": 0, "Business Proposal": -2, "General Article": 0},
		},
	}
	scorer := newTestScorer(t, backend)

	_, err := scorer.Classify(context.Background(), "some text", "fake")
	if !domain.IsKind(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected backend unavailable for degenerate vector, got %v", err)
	}
}

func TestRegistryRejectsDuplicateKeys(t *testing.T) {
	a := &fakeBackend{desc: domain.BackendDescriptor{Key: "same"}}
	b := &fakeBackend{desc: domain.BackendDescriptor{Key: "same"}}
	if _, err := NewRegistry(testLabels, a, b); err == nil {
		t.Fatal("expected duplicate key error")
	}
}

func TestRegistryListsBackendsInRegistrationOrder(t *testing.T) {
	a := &fakeBackend{desc: domain.BackendDescriptor{Key: "first"}}
	b := &fakeBackend{desc: domain.BackendDescriptor{Key: "second"}}
	registry, err := NewRegistry(testLabels, a, b)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	descs := registry.ListBackends()
	if len(descs) != 2 || descs[0].Key != "first" || descs[1].Key != "second" {
		t.Fatalf("expected registration order preserved, got %v", descs)
	}
}
