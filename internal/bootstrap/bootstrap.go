package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/smart-document-classifier/internal/classify"
	"github.com/kirillkom/smart-document-classifier/internal/classify/hfzero"
	"github.com/kirillkom/smart-document-classifier/internal/config"
	"github.com/kirillkom/smart-document-classifier/internal/core/ports"
	"github.com/kirillkom/smart-document-classifier/internal/core/usecase"
	"github.com/kirillkom/smart-document-classifier/internal/extract"
	"github.com/kirillkom/smart-document-classifier/internal/infrastructure/queue/nats"
	"github.com/kirillkom/smart-document-classifier/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/smart-document-classifier/internal/infrastructure/resilience"
	"github.com/kirillkom/smart-document-classifier/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Repo     ports.DocumentRepository
	Registry *classify.Registry

	UploadUC   ports.DocumentUploader
	BatchUC    ports.BatchRunner
	ClassifyUC ports.DocumentClassifier
	RemoveUC   ports.DocumentRemover

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	classifierCfg, err := config.LoadClassifierConfig(cfg.ClassifierConfigPath)
	if err != nil {
		return nil, err
	}

	inferenceClient := hfzero.New(cfg.InferenceURL, hfzero.Options{
		RequestTimeout:     time.Duration(cfg.ClassifyTimeoutSeconds) * time.Second,
		ResilienceExecutor: executor,
	})
	backends := make([]classify.Backend, 0, len(classifierCfg.Backends))
	for _, desc := range classifierCfg.Backends {
		backends = append(backends, hfzero.NewBackend(inferenceClient, desc))
	}
	registry, err := classify.NewRegistry(classifierCfg.Labels, backends...)
	if err != nil {
		return nil, fmt.Errorf("init backend registry: %w", err)
	}
	scorer := classify.NewScorer(registry)

	normalizer := extract.NewNormalizer()
	lifecycle := usecase.NewLifecycleManager(repo, nil)
	classifyTimeout := time.Duration(cfg.ClassifyTimeoutSeconds) * time.Second

	uploadUC := usecase.NewUploadDocumentUseCase(
		lifecycle, storage, queue, normalizer, scorer,
		cfg.MaxFileSizeBytes, cfg.DefaultBackend,
	)
	batchUC := usecase.NewBatchUploadUseCase(
		lifecycle, storage, normalizer, scorer,
		int64(cfg.ClassifyConcurrency), cfg.MaxBatchFiles, cfg.MaxFileSizeBytes,
		classifyTimeout, cfg.DefaultBackend,
	)
	classifyUC := usecase.NewClassifyDocumentUseCase(repo, lifecycle, scorer, cfg.DefaultBackend)
	removeUC := usecase.NewRemoveDocumentUseCase(repo, storage, nil)

	return &App{
		Config:   cfg,
		Queue:    queue,
		Repo:     repo,
		Registry: registry,

		UploadUC:   uploadUC,
		BatchUC:    batchUC,
		ClassifyUC: classifyUC,
		RemoveUC:   removeUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
