package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/invoiceagent/internal/adapter/extraction/gemini"
	"github.com/iho/invoiceagent/internal/adapter/repository/csvledger"
	"github.com/iho/invoiceagent/internal/adapter/repository/filesystem"
	"github.com/iho/invoiceagent/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/invoiceagent/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/invoiceagent/internal/adapter/repository/redis"
	"github.com/iho/invoiceagent/internal/domain"
	"github.com/iho/invoiceagent/internal/infrastructure/config"
	"github.com/iho/invoiceagent/internal/infrastructure/logger"
	"github.com/iho/invoiceagent/internal/infrastructure/metrics"
	"github.com/iho/invoiceagent/internal/infrastructure/postgres"
	"github.com/iho/invoiceagent/internal/infrastructure/redis"
	"github.com/iho/invoiceagent/internal/usecase"
)

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	files      *filesystem.FileRepository
	ledgerUC   *usecase.LedgerUseCase
	overviewUC *usecase.OverviewUseCase
	// pipeline is nil when GOOGLE_API_KEY is not set.
	pipeline *usecase.PipelineUseCase

	redisClient *goredis.Client
	pool        *pgxpool.Pool
}

// loadConfig reads the configuration and builds the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cmd.ErrOrStderr(),
	})

	return cfg, log, nil
}

// newApp wires repositories and use cases. Redis and PostgreSQL are only
// connected when configured.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &app{
		cfg:      cfg,
		logger:   log,
		registry: registry,
		metrics:  metrics.NewWithRegisterer(registry),
	}

	// Initialize repositories
	a.files = filesystem.NewFileRepository(cfg.CollisionPolicy, log)
	ledgerRepo := csvledger.NewLedgerRepository()
	idGen := postgresRepo.NewULIDGenerator()

	var lock usecase.RunLock = memory.NewRunLock()
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redisClient = client
		lock = redisRepo.NewRunLock(client, log)
		log.Info().Msg("connected to redis, using shared run lock")
	}

	var mirror usecase.RecordMirror
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.pool = pool
		mirror = postgresRepo.NewInvoiceMirror(pool, postgresRepo.NewRetrier(log), idGen)
		log.Info().Msg("connected to postgres, mirroring ledger rows")
	}

	// Initialize use cases
	a.ledgerUC = usecase.NewLedgerUseCase(ledgerRepo)
	a.overviewUC = usecase.NewOverviewUseCase(a.files, a.ledgerUC)

	extractor, err := gemini.NewClient(gemini.Config{
		APIKey:            cfg.GoogleAPIKey,
		Model:             cfg.GeminiModel,
		BaseURL:           cfg.GeminiBaseURL,
		Timeout:           cfg.ExtractionTimeout,
		RequestsPerMinute: cfg.ExtractionRequestsPerMinute,
		Logger:            log,
	})
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		log.Warn().Msg("GOOGLE_API_KEY is not set, runs are disabled")
	case err != nil:
		a.Close()
		return nil, err
	default:
		a.pipeline = usecase.NewPipelineUseCase(usecase.PipelineDeps{
			Files:     a.files,
			Extractor: extractor,
			Ledger:    ledgerRepo,
			Mirror:    mirror,
			Lock:      lock,
			Recorder:  a.metrics,
			IDGen:     idGen,
			Logger:    log,
		}, usecase.PipelineOptions{
			PreserveExtension: cfg.ArchivePreserveExtension,
			LockTTL:           cfg.RunLockTTL,
		})
	}

	return a, nil
}

func (a *app) runInput() usecase.RunInput {
	return usecase.RunInput{
		InputDir:   a.cfg.InputDir,
		OutputDir:  a.cfg.OutputDir,
		LedgerPath: a.cfg.LedgerPath,
	}
}

// Close releases backend connections.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redisClient != nil {
		a.redisClient.Close()
	}
}

// ensureDirs creates the input and output folders.
func ensureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
