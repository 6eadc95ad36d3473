package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/iho/invoiceagent/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	// Model
	GoogleAPIKey                string        `env:"GOOGLE_API_KEY"`
	GeminiModel                 string        `env:"GEMINI_MODEL"                   envDefault:"gemini-2.5-flash"`
	GeminiBaseURL               string        `env:"GEMINI_BASE_URL"                envDefault:"https://generativelanguage.googleapis.com"`
	ExtractionTimeout           time.Duration `env:"EXTRACTION_TIMEOUT"             envDefault:"60s"`
	ExtractionRequestsPerMinute float64       `env:"EXTRACTION_REQUESTS_PER_MINUTE" envDefault:"15"`

	// Folders
	InputDir                 string `env:"INPUT_DIR"                  envDefault:"factures_a_traiter"`
	OutputDir                string `env:"OUTPUT_DIR"                 envDefault:"factures_traitees"`
	LedgerPath               string `env:"LEDGER_PATH"                envDefault:"rapport_depenses.csv"`
	ArchiveCollisionPolicy   string `env:"ARCHIVE_COLLISION_POLICY"   envDefault:"suffix"`
	ArchivePreserveExtension bool   `env:"ARCHIVE_PRESERVE_EXTENSION" envDefault:"false"`

	// HTTP Server
	HTTPPort            string        `env:"HTTP_PORT"             envDefault:"8501"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"15m"`
	HTTPIdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT"     envDefault:"60s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RunRateLimit        float64       `env:"RUN_RATE_LIMIT"        envDefault:"0.2"`
	RunRateBurst        int           `env:"RUN_RATE_BURST"        envDefault:"2"`

	// Run lock (in-memory when REDIS_URL is empty)
	RedisURL   string        `env:"REDIS_URL"`
	RunLockTTL time.Duration `env:"RUN_LOCK_TTL" envDefault:"30m"`

	// Ledger mirror (disabled when DATABASE_URL is empty)
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseMaxConns int    `env:"DATABASE_MAX_CONNS" envDefault:"5"`
	DatabaseMinConns int    `env:"DATABASE_MIN_CONNS" envDefault:"0"`
	MigrationsPath   string `env:"MIGRATIONS_PATH"    envDefault:"migrations"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	CollisionPolicy domain.CollisionPolicy `env:"-"`
}

// Load loads configuration from a .env file, if present, and environment
// variables. Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	policy, err := domain.ParseCollisionPolicy(cfg.ArchiveCollisionPolicy)
	if err != nil {
		return nil, err
	}
	cfg.CollisionPolicy = policy

	return cfg, nil
}

// Validate checks what a run needs before any file is touched.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GoogleAPIKey) == "" {
		return domain.ErrMissingCredential
	}
	return nil
}
