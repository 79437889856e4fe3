package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/ovolkov/fund-insight/internal/config"
	"github.com/ovolkov/fund-insight/internal/core/domain"
	"github.com/ovolkov/fund-insight/internal/core/ports"
	"github.com/ovolkov/fund-insight/internal/core/usecase"
	"github.com/ovolkov/fund-insight/internal/infrastructure/chunking"
	"github.com/ovolkov/fund-insight/internal/infrastructure/llm/openai"
	"github.com/ovolkov/fund-insight/internal/infrastructure/queue/nats"
	"github.com/ovolkov/fund-insight/internal/infrastructure/repository/postgres"
	"github.com/ovolkov/fund-insight/internal/infrastructure/resilience"
	"github.com/ovolkov/fund-insight/internal/infrastructure/storage/localfs"
	"github.com/ovolkov/fund-insight/internal/infrastructure/tabular"
	"github.com/ovolkov/fund-insight/internal/infrastructure/vector/qdrant"
	"github.com/ovolkov/fund-insight/internal/observability/logging"
	"github.com/ovolkov/fund-insight/internal/observability/metrics"
)

// App wires every adapter to the use cases. Both the api and the worker
// binaries boot through here so the dependency graph stays in one place.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue ports.MessageQueue
	Repo  ports.SnapshotRepository

	RegisterUC *usecase.RegisterSnapshotUseCase
	ProcessUC  *usecase.ProcessSnapshotUseCase
	AnswerUC   *usecase.AnswerAssembler
	Aggregates *usecase.AggregateEngine

	HTTPMetrics   *metrics.HTTPServerMetrics
	WorkerMetrics *metrics.WorkerMetrics

	ready   atomic.Bool
	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewSnapshotRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	llmClient := openai.New(openai.Config{
		BaseURL:           cfg.OpenAIBaseURL,
		APIKey:            cfg.OpenAIAPIKey,
		GenModel:          cfg.OpenAIGenModel,
		EmbedModel:        cfg.OpenAIEmbedModel,
		RequestsPerMinute: cfg.OpenAIRPM,
	}, executor)
	embedder := openai.NewEmbedder(llmClient)
	generator := openai.NewGenerator(llmClient)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantHoldingsCollection, cfg.QdrantTradesCollection)
	chunker := chunking.NewRowChunker(cfg.ChunkTokenBudget)
	loader := tabular.NewLoader(storage)

	app := &App{
		Config: cfg,
		Logger: logger,
		Queue:  queue,
		Repo:   repo,

		HTTPMetrics:   metrics.NewHTTPServerMetrics(service),
		WorkerMetrics: metrics.NewWorkerMetrics(service),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}

	dataset := app.loadSeedDataset(ctx, cfg, logger)
	aggregates := usecase.NewAggregateEngine(dataset)
	retriever := usecase.NewSemanticRetriever(embedder, vectorDB, usecase.RetrieverConfig{
		TopK:           cfg.TopK,
		MinScore:       cfg.MinScore,
		MinMatches:     cfg.MinMatches,
		DedupTolerance: cfg.DedupTolerance,
	})
	hybrid := usecase.NewHybridRetrieval(usecase.NewQueryRouter(nil), aggregates, retriever)

	app.Aggregates = aggregates
	app.AnswerUC = usecase.NewAnswerAssembler(hybrid, generator)
	app.RegisterUC = usecase.NewRegisterSnapshotUseCase(repo, storage, queue)
	app.ProcessUC = usecase.NewProcessSnapshotUseCase(repo, loader, chunker, embedder, vectorDB)

	return app, nil
}

// loadSeedDataset reads the bundled holdings/trades pair that backs the
// aggregation path. Both files must live in the same directory. A missing or
// broken pair is not fatal: the service starts with an empty dataset and
// reports not-ready, so aggregation questions refuse instead of answering
// from nothing.
func (a *App) loadSeedDataset(ctx context.Context, cfg config.Config, logger *slog.Logger) *domain.Dataset {
	seedStore, err := localfs.New(filepath.Dir(cfg.HoldingsPath))
	if err != nil {
		logger.Warn("seed dataset unavailable", "error", err)
		return &domain.Dataset{}
	}
	seedLoader := tabular.NewLoader(seedStore)
	dataset, err := seedLoader.Load(ctx, filepath.Base(cfg.HoldingsPath), filepath.Base(cfg.TradesPath))
	if err != nil {
		logger.Warn("seed dataset unavailable",
			"holdings_path", cfg.HoldingsPath,
			"trades_path", cfg.TradesPath,
			"error", err)
		return &domain.Dataset{}
	}
	a.ready.Store(true)
	logger.Info("seed dataset loaded",
		"funds", len(dataset.FundNames()),
		"holdings_rows", len(dataset.HoldingRows),
		"trades_rows", len(dataset.TradeRows))
	return dataset
}

// Ready reports whether the seed dataset is loaded.
func (a *App) Ready() bool { return a.ready.Load() }

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
