package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/solar-equipment-parser/internal/adapters/http"
	"github.com/kirillkom/solar-equipment-parser/internal/bootstrap"
	"github.com/kirillkom/solar-equipment-parser/internal/config"
	"github.com/kirillkom/solar-equipment-parser/internal/observability/logging"
	"github.com/kirillkom/solar-equipment-parser/internal/observability/metrics"
)

const serviceName = "api"

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

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	pipelineMetrics := metrics.NewPipelineMetrics(httpMetrics.Registry(), serviceName)

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger, Metrics: pipelineMetrics})
	if err != nil {
		logger.Error("bootstrap.failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(
		cfg,
		app.Parser,
		app.Jobs,
		app.Catalog,
		httpadapter.WithMetrics(httpMetrics),
		httpadapter.WithLogger(logger),
	).Handler()

	parseBudget := time.Duration(cfg.APIParseTimeoutSecs) * time.Second
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      parseBudget + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		logger.Error("api.listen_failed", "error", err, "port", cfg.APIPort)
		os.Exit(1)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	go func() {
		logger.Info("api.listening", "port", cfg.APIPort, "auth_mode", cfg.AuthMode, "llm_provider", cfg.LLMProvider)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api.server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api.shutdown_failed", "error", err)
	}
}
