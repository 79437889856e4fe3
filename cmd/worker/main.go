package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovolkov/fund-insight/internal/bootstrap"
	"github.com/ovolkov/fund-insight/internal/config"
)

const service = "worker"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, service)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: app.WorkerMetrics.Handler(),
	}
	go func() {
		app.Logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Error("worker metrics server error", "error", err)
		}
	}()

	app.Logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeSnapshotIngested(ctx, func(handlerCtx context.Context, snapshotID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		app.WorkerMetrics.StartSnapshot()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, snapshotID)
		app.WorkerMetrics.FinishSnapshot(service, time.Since(start), processErr)

		if processErr != nil {
			app.Logger.Error("snapshot processing failed", "snapshot_id", snapshotID, "error", processErr)
			return processErr
		}

		if snap, getErr := app.Repo.GetByID(processCtx, snapshotID); getErr == nil {
			app.WorkerMetrics.ObserveIndexedChunks(service, snap.ChunkCount)
			app.Logger.Info("snapshot processed",
				"snapshot_id", snapshotID,
				"funds", snap.FundCount,
				"chunks", snap.ChunkCount)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
