package classify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
)

// Scorer implements document classification over the registry: chunk the text
// to the backend's token budget, score every chunk, combine per-chunk label
// distributions into one ranked vector.
type Scorer struct {
	registry *Registry
}

func NewScorer(registry *Registry) *Scorer {
	return &Scorer{registry: registry}
}

func (s *Scorer) ListBackends() []domain.BackendDescriptor {
	return s.registry.ListBackends()
}

// Classify scores text with the named backend. Empty or whitespace-only text
// fails before any backend call. Chunk distributions are combined by
// unweighted arithmetic mean, so the combined vector stays unit-sum; the
// predicted category is the argmax with ties broken by label declaration
// order.
func (s *Scorer) Classify(ctx context.Context, text, backendKey string) (domain.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ClassificationResult{}, domain.WrapError(
			domain.ErrNoClassifiableText, "classify document", errors.New("empty or whitespace-only text"))
	}

	backend, err := s.registry.Get(backendKey)
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	desc := backend.Descriptor()
	labels := s.registry.labels

	plan := BuildPlan(text, desc.MaxTokens)
	if len(plan.Chunks) == 0 {
		return domain.ClassificationResult{}, domain.WrapError(
			domain.ErrNoClassifiableText, "classify document", errors.New("chunking produced zero chunks"))
	}

	sums := make(map[string]float64, len(labels))
	start := time.Now()
	for _, chunk := range plan.Chunks {
		raw, err := backend.Score(ctx, chunk, labels)
		if err != nil {
			return domain.ClassificationResult{}, classifyScoreError(ctx, err)
		}
		dist, err := normalizeDistribution(raw, labels)
		if err != nil {
			return domain.ClassificationResult{}, domain.WrapError(domain.ErrBackendUnavailable, "score chunk", err)
		}
		for _, label := range labels {
			sums[label] += dist[label]
		}
	}
	elapsed := time.Since(start)

	allScores := make(map[string]float64, len(labels))
	for _, label := range labels {
		allScores[label] = sums[label] / float64(len(plan.Chunks))
	}

	predicted, confidence := argmax(allScores, labels)

	return domain.ClassificationResult{
		PredictedCategory: predicted,
		ConfidenceScore:   confidence,
		AllScores:         allScores,
		BackendKey:        desc.Key,
		BackendName:       desc.Name,
		ModelID:           desc.ModelID,
		TokenCount:        plan.OriginalTokenCount,
		ChunksProcessed:   len(plan.Chunks),
		WasChunked:        plan.WasChunked,
		InferenceSeconds:  elapsed.Seconds(),
	}, nil
}

// normalizeDistribution clamps negatives and rescales the vector to unit sum
// over exactly the fixed label set. Labels the backend omitted score zero.
func normalizeDistribution(raw map[string]float64, labels []string) (map[string]float64, error) {
	dist := make(map[string]float64, len(labels))
	var sum float64
	for _, label := range labels {
		v := raw[label]
		if v < 0 {
			v = 0
		}
		dist[label] = v
		sum += v
	}
	if sum <= 0 {
		return nil, errors.New("degenerate score vector: all labels scored zero")
	}
	for _, label := range labels {
		dist[label] /= sum
	}
	return dist, nil
}

// argmax picks the winning label; the first-declared label wins ties so
// results stay deterministic.
func argmax(scores map[string]float64, labels []string) (string, float64) {
	best := labels[0]
	bestScore := scores[best]
	for _, label := range labels[1:] {
		if scores[label] > bestScore {
			best = label
			bestScore = scores[label]
		}
	}
	return best, bestScore
}

func classifyScoreError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrClassificationTimeout, "score chunk", err)
	}
	if domain.IsKind(err, domain.ErrBackendUnavailable) {
		return err
	}
	return domain.WrapError(domain.ErrBackendUnavailable, "score chunk", err)
}
