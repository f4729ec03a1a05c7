// Package hfzero is the HTTP client for a HuggingFace-style zero-shot
// classification inference server. One Backend is registered per served
// model; all of them share a Client.
package hfzero

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
	"github.com/kirillkom/smart-document-classifier/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	RequestTimeout     time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	timeout := options.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// Backend adapts one served model to the classify.Backend capability.
type Backend struct {
	client *Client
	desc   domain.BackendDescriptor
}

func NewBackend(client *Client, desc domain.BackendDescriptor) *Backend {
	return &Backend{client: client, desc: desc}
}

func (b *Backend) Descriptor() domain.BackendDescriptor {
	return b.desc
}

func (b *Backend) Score(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	request := scoreRequest{
		Inputs: text,
		Parameters: scoreParameters{
			CandidateLabels: labels,
			MultiLabel:      false,
		},
	}

	var response scoreResponse
	call := func(callCtx context.Context) error {
		return b.client.postJSON(callCtx, "/models/"+url.PathEscape(b.desc.ModelID), request, &response, "score")
	}

	var err error
	if b.client.executor != nil {
		err = b.client.executor.Execute(ctx, "hfzero.score."+b.desc.Key, call, classifyScoreError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("score "+b.desc.Key, err)
	}

	if len(response.Labels) != len(response.Scores) {
		return nil, fmt.Errorf("hfzero score: labels/scores mismatch: %d/%d", len(response.Labels), len(response.Scores))
	}
	scores := make(map[string]float64, len(response.Labels))
	for i, label := range response.Labels {
		scores[label] = response.Scores[i]
	}
	return scores, nil
}

type scoreRequest struct {
	Inputs     string          `json:"inputs"`
	Parameters scoreParameters `json:"parameters"`
}

type scoreParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

type scoreResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}
