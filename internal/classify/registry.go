package classify

import (
	"context"
	"fmt"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
)

// Backend is one swappable zero-shot classifier. Score returns a label→score
// mapping for a single chunk; the scorer normalizes it defensively, so
// implementations may return raw entailment scores.
type Backend interface {
	Descriptor() domain.BackendDescriptor
	Score(ctx context.Context, text string, labels []string) (map[string]float64, error)
}

// Registry is the immutable set of registered backends plus the fixed label
// set. It is built once at startup and safe for unsynchronized concurrent
// reads.
type Registry struct {
	labels   []string
	keys     []string
	backends map[string]Backend
}

func NewRegistry(labels []string, backends ...Backend) (*Registry, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("classify: label set is empty")
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("classify: no backends registered")
	}

	r := &Registry{
		labels:   append([]string(nil), labels...),
		backends: make(map[string]Backend, len(backends)),
	}
	for _, b := range backends {
		key := b.Descriptor().Key
		if key == "" {
			return nil, fmt.Errorf("classify: backend with empty key")
		}
		if _, dup := r.backends[key]; dup {
			return nil, fmt.Errorf("classify: duplicate backend key %q", key)
		}
		r.backends[key] = b
		r.keys = append(r.keys, key)
	}
	return r, nil
}

// Labels returns the fixed label set in declaration order. Declaration order
// doubles as the argmax tie-break order.
func (r *Registry) Labels() []string {
	return append([]string(nil), r.labels...)
}

func (r *Registry) ListBackends() []domain.BackendDescriptor {
	out := make([]domain.BackendDescriptor, 0, len(r.keys))
	for _, key := range r.keys {
		out = append(out, r.backends[key].Descriptor())
	}
	return out
}

func (r *Registry) Get(key string) (Backend, error) {
	b, ok := r.backends[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrUnknownBackend, "resolve backend", fmt.Errorf("key %q", key))
	}
	return b, nil
}
