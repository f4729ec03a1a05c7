package usecase

import (
	"context"
	"io"
	"sync"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
)

type fakeRepo struct {
	mu   sync.Mutex
	docs map[string]*domain.Document

	createErr error
	applyErr  error
	applied   map[string]domain.ClassificationResult
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:    make(map[string]*domain.Document),
		applied: make(map[string]domain.ClassificationResult),
	}
}

func (r *fakeRepo) Create(_ context.Context, doc *domain.Document) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeRepo) List(_ context.Context) ([]domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		out = append(out, *doc)
	}
	return out, nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *fakeRepo) ApplyClassification(_ context.Context, id string, result domain.ClassificationResult) error {
	if r.applyErr != nil {
		return r.applyErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	ApplyToDocument(doc, result)
	r.applied[id] = result
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	saved   map[string][]byte
	deleted []string

	saveErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: make(map[string][]byte)}
}

func (s *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	payload, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[key] = payload
	return nil
}

func (s *fakeStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type fakeQueue struct {
	mu         sync.Mutex
	published  []domain.ClassifyJob
	publishErr error
}

func (q *fakeQueue) PublishClassifyRequested(_ context.Context, job domain.ClassifyJob) error {
	if q.publishErr != nil {
		return q.publishErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, job)
	return nil
}

func (q *fakeQueue) SubscribeClassifyRequested(context.Context, func(context.Context, domain.ClassifyJob) error) error {
	return nil
}

type fakeNormalizer struct {
	text     string
	warnings []string
	err      error

	perFile map[string]string
}

func (n *fakeNormalizer) Normalize(data []byte, _ domain.Format) (string, []string, error) {
	if n.err != nil {
		return "", nil, n.err
	}
	if n.perFile != nil {
		if text, ok := n.perFile[string(data)]; ok {
			return text, n.warnings, nil
		}
	}
	if n.text != "" {
		return n.text, n.warnings, nil
	}
	return string(data), n.warnings, nil
}

type fakeScorer struct {
	mu     sync.Mutex
	result domain.ClassificationResult
	err    error

	errFor   map[string]error
	calls    int
	maxInUse int
	inUse    int
	block    chan struct{}
}

func (s *fakeScorer) Classify(ctx context.Context, text, backendKey string) (domain.ClassificationResult, error) {
	s.mu.Lock()
	s.calls++
	s.inUse++
	if s.inUse > s.maxInUse {
		s.maxInUse = s.inUse
	}
	block := s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			s.mu.Lock()
			s.inUse--
			s.mu.Unlock()
			return domain.ClassificationResult{}, ctx.Err()
		}
	}

	s.mu.Lock()
	s.inUse--
	err := s.err
	if s.errFor != nil {
		if forced, ok := s.errFor[text]; ok {
			err = forced
		}
	}
	result := s.result
	s.mu.Unlock()

	if err != nil {
		return domain.ClassificationResult{}, err
	}
	if result.BackendKey == "" {
		result.BackendKey = backendKey
	}
	return result, nil
}
