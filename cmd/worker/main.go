package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/solar-equipment-parser/internal/bootstrap"
	"github.com/kirillkom/solar-equipment-parser/internal/config"
	"github.com/kirillkom/solar-equipment-parser/internal/observability/logging"
	"github.com/kirillkom/solar-equipment-parser/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg, err := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	if err != nil {
		logger.Error("config.load_failed", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	pipelineMetrics := metrics.NewPipelineMetrics(workerMetrics.Registry(), serviceName)

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger, Metrics: pipelineMetrics})
	if err != nil {
		logger.Error("bootstrap.failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker.metrics_server_failed", "error", err)
		}
	}()

	jobTimeout := time.Duration(cfg.WorkerJobTimeoutSecs) * time.Second
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}

	logger.Info("worker.subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeWithLag(ctx, func(handlerCtx context.Context, jobID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		defer cancel()

		done := workerMetrics.TrackJob()
		err := app.Processor.ProcessByID(processCtx, jobID)
		done(err)
		return err
	}, workerMetrics.ObserveQueueLag)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker.subscribe_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
