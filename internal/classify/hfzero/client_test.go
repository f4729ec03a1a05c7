package hfzero

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
	"github.com/kirillkom/smart-document-classifier/internal/infrastructure/resilience"
)

func testDescriptor() domain.BackendDescriptor {
	return domain.BackendDescriptor{
		Key:       "bart-large-mnli",
		Name:      "BART Large MNLI",
		ModelID:   "facebook/bart-large-mnli",
		MaxTokens: 800,
	}
}

func TestScoreSendsCandidateLabelsAndParsesResponse(t *testing.T) {
	var gotPath string
	var gotReq scoreRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(scoreResponse{
			Labels: []string{"Legal Document", "General Article"},
			Scores: []float64{0.9, 0.1},
		})
	}))
	defer server.Close()

	backend := NewBackend(New(server.URL, Options{RequestTimeout: 2 * time.Second}), testDescriptor())
	scores, err := backend.Score(context.Background(), "the parties agree", []string{"Legal Document", "General Article"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/models/facebook%2Fbart-large-mnli" && gotPath != "/models/facebook/bart-large-mnli" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if gotReq.Inputs != "the parties agree" {
		t.Fatalf("unexpected inputs %q", gotReq.Inputs)
	}
	if len(gotReq.Parameters.CandidateLabels) != 2 {
		t.Fatalf("expected candidate labels forwarded, got %v", gotReq.Parameters.CandidateLabels)
	}
	if gotReq.Parameters.MultiLabel {
		t.Fatalf("zero-shot single-label request must set multi_label false")
	}
	if scores["Legal Document"] != 0.9 {
		t.Fatalf("unexpected scores %v", scores)
	}
}

func TestScoreIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"sequence too long"}`))
	}))
	defer server.Close()

	backend := NewBackend(New(server.URL, Options{}), testDescriptor())
	_, err := backend.Score(context.Background(), "text", []string{"A"})
	if err == nil {
		t.Fatal("expected error for 422 response")
	}
	if !strings.Contains(err.Error(), "sequence too long") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestScoreRetriesTransientServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(scoreResponse{
			Labels: []string{"A"},
			Scores: []float64{1},
		})
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
	backend := NewBackend(New(server.URL, Options{ResilienceExecutor: executor}), testDescriptor())

	scores, err := backend.Score(context.Background(), "text", []string{"A"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if scores["A"] != 1 {
		t.Fatalf("unexpected scores %v", scores)
	}
}

func TestScoreDoesNotRetryClientError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
	backend := NewBackend(New(server.URL, Options{ResilienceExecutor: executor}), testDescriptor())

	if _, err := backend.Score(context.Background(), "text", []string{"A"}); err == nil {
		t.Fatal("expected 400 to fail")
	}
	if attempts != 1 {
		t.Fatalf("client errors must not retry, got %d attempts", attempts)
	}
}

func TestScoreRejectsMismatchedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(scoreResponse{
			Labels: []string{"A", "B"},
			Scores: []float64{0.5},
		})
	}))
	defer server.Close()

	backend := NewBackend(New(server.URL, Options{}), testDescriptor())
	if _, err := backend.Score(context.Background(), "text", []string{"A", "B"}); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestScoreRespectsContextCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can observe the
		// client disconnect and cancel r.Context(); otherwise Close hangs.
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	backend := NewBackend(New(server.URL, Options{}), testDescriptor())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	if _, err := backend.Score(ctx, "text", []string{"A"}); err == nil {
		t.Fatal("expected cancellation error")
	}
}
