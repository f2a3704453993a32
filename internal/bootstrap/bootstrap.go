package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/solar-equipment-parser/internal/config"
	"github.com/kirillkom/solar-equipment-parser/internal/core/ports"
	"github.com/kirillkom/solar-equipment-parser/internal/core/usecase"
	"github.com/kirillkom/solar-equipment-parser/internal/core/validation"
	"github.com/kirillkom/solar-equipment-parser/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/solar-equipment-parser/internal/infrastructure/fetcher/httpfetch"
	"github.com/kirillkom/solar-equipment-parser/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/solar-equipment-parser/internal/infrastructure/llm/openai"
	"github.com/kirillkom/solar-equipment-parser/internal/infrastructure/queue/nats"
	"github.com/kirillkom/solar-equipment-parser/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/solar-equipment-parser/internal/infrastructure/resilience"
	"github.com/kirillkom/solar-equipment-parser/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/solar-equipment-parser/internal/observability/metrics"
)

const defaultOllamaURL = "http://localhost:11434"

type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.PipelineMetrics
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     *nats.Queue
	Parser    ports.EquipmentParser
	Jobs      ports.ParseJobService
	Processor ports.ParseJobProcessor
	Catalog   ports.EquipmentCatalog

	closeFn func()
}

// New wires the full service: postgres, NATS, upload staging and the parse pipeline.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	parser, validator, err := newParser(cfg, logger, opts.Metrics)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	jobRepo := postgres.NewParseJobRepository(db)
	equipmentRepo := postgres.NewEquipmentRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queueCfg := breakerConfig(cfg)
	queueCfg.RetryMaxAttempts = cfg.NATSRetryMaxAttempts
	queueExecutor := resilience.NewExecutor(queueCfg, logger)
	if opts.Metrics != nil {
		queueExecutor.OnStateChange(opts.Metrics.SetBreakerOpen)
	}
	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: queueExecutor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Parser:    parser,
		Jobs:      usecase.NewSubmitParseJobUseCase(jobRepo, storage, queue),
		Processor: usecase.NewProcessParseJobUseCase(jobRepo, storage, parser, cfg.UploadMaxBytes, logger),
		Catalog:   usecase.NewEquipmentCatalogUseCase(equipmentRepo, validator),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// NewParser wires only the stateless pipeline. The CLI and MCP tool use it.
func NewParser(cfg config.Config, opts Options) (ports.EquipmentParser, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	parser, _, err := newParser(cfg, logger, opts.Metrics)
	return parser, err
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newParser(cfg config.Config, logger *slog.Logger, m *metrics.PipelineMetrics) (*usecase.ParseEquipmentUseCase, *validation.Validator, error) {
	validator, err := validation.NewValidator()
	if err != nil {
		return nil, nil, fmt.Errorf("init validator: %w", err)
	}

	llmExecutor := resilience.NewExecutor(breakerConfig(cfg).SingleAttempt(), logger)
	var observer ports.ParseObserver
	if m != nil {
		llmExecutor.OnStateChange(m.SetBreakerOpen)
		observer = m
	}

	llm, err := newStructuredExtractor(cfg, llmExecutor, logger)
	if err != nil {
		return nil, nil, err
	}

	fetcher := httpfetch.New(httpfetch.Options{
		Timeout:   seconds(cfg.FetchTimeoutSeconds),
		MaxBytes:  cfg.FetchMaxBytes,
		UserAgent: cfg.FetchUserAgent,
		Logger:    logger,
	})

	parser := usecase.NewParseEquipmentUseCase(
		fetcher,
		pdftext.New(),
		llm,
		validator,
		observer,
		usecase.ParserConfig{
			MaxPromptChars: cfg.MaxPromptChars,
			MinTextChars:   cfg.MinTextChars,
		},
		logger,
	)
	return parser, validator, nil
}

func newStructuredExtractor(cfg config.Config, executor *resilience.Executor, logger *slog.Logger) (ports.StructuredExtractor, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:      cfg.LLMAPIKey,
			BaseURL:     cfg.LLMBaseURL,
			Model:       cfg.LLMModel,
			Temperature: float32(cfg.LLMTemperature),
			Timeout:     seconds(cfg.LLMTimeoutSeconds),
		}, executor, logger), nil
	case config.LLMProviderOllama:
		baseURL := cfg.LLMBaseURL
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		return ollama.New(baseURL, cfg.LLMModel, ollama.Options{
			Timeout:  seconds(cfg.LLMTimeoutSeconds),
			Executor: executor,
			Logger:   logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func breakerConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	if cfg.BreakerFailureRatio > 0 {
		out.BreakerFailureRatio = cfg.BreakerFailureRatio
	}
	if cfg.BreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.BreakerMinRequests)
	}
	if cfg.BreakerOpenTimeoutSecs > 0 {
		out.BreakerOpenTimeout = seconds(cfg.BreakerOpenTimeoutSecs)
	}
	return out
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
