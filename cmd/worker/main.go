package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/smart-document-classifier/internal/bootstrap"
	"github.com/kirillkom/smart-document-classifier/internal/config"
	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
	"github.com/kirillkom/smart-document-classifier/internal/observability/logging"
	"github.com/kirillkom/smart-document-classifier/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	classifyTimeout := time.Duration(cfg.ClassifyTimeoutSeconds) * time.Second

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeClassifyRequested(ctx, func(handlerCtx context.Context, job domain.ClassifyJob) error {
		if !job.EnqueuedAt.IsZero() {
			workerMetrics.ObserveQueueLag("worker", time.Since(job.EnqueuedAt))
		}

		workerMetrics.StartJob()
		start := time.Now()

		jobCtx, cancel := context.WithTimeout(handlerCtx, classifyTimeout)
		defer cancel()
		_, err := app.ClassifyUC.ClassifyByID(jobCtx, job.DocumentID, job.BackendKey)

		workerMetrics.FinishJob("worker", job.BackendKey, time.Since(start), err)
		return err
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
