package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/laurentvv/haproxy-docs-rag/internal/bootstrap"
	"github.com/laurentvv/haproxy-docs-rag/internal/config"
	"github.com/laurentvv/haproxy-docs-rag/internal/observability/logging"
	"github.com/laurentvv/haproxy-docs-rag/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeRebuildRequested(ctx, func(handlerCtx context.Context, reason string) error {
		rebuildCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Minute)
		defer cancel()

		workerMetrics.StartRebuild()
		start := time.Now()
		chunks, err := app.Rebuilder.Rebuild(rebuildCtx)
		workerMetrics.FinishRebuild("worker", time.Since(start), chunks, err)

		if err != nil {
			logger.Error("index rebuild failed", "reason", reason, "error", err)
			return err
		}
		logger.Info("index rebuilt", "reason", reason, "chunks", chunks)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
