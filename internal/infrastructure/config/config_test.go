package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iho/invoiceagent/internal/domain"
	"github.com/iho/invoiceagent/internal/infrastructure/config"
)

func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load(noEnvFile(t))
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.InputDir != "factures_a_traiter" || cfg.OutputDir != "factures_traitees" {
		t.Fatalf("unexpected default folders: %s %s", cfg.InputDir, cfg.OutputDir)
	}

	if cfg.LedgerPath != "rapport_depenses.csv" {
		t.Fatalf("unexpected default ledger path: %s", cfg.LedgerPath)
	}

	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Fatalf("unexpected default model: %s", cfg.GeminiModel)
	}

	if cfg.CollisionPolicy != domain.CollisionSuffix {
		t.Fatalf("expected suffix policy, got %s", cfg.CollisionPolicy)
	}

	if cfg.HTTPPort != "8501" {
		t.Fatalf("expected default HTTP port 8501, got %s", cfg.HTTPPort)
	}

	if cfg.RedisURL != "" || cfg.DatabaseURL != "" {
		t.Fatalf("expected optional backends to be disabled")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "key")
	t.Setenv("INPUT_DIR", "/in")
	t.Setenv("ARCHIVE_COLLISION_POLICY", "reject")
	t.Setenv("ARCHIVE_PRESERVE_EXTENSION", "true")
	t.Setenv("EXTRACTION_TIMEOUT", "45s")
	t.Setenv("REDIS_URL", "redis://example")

	cfg, err := config.Load(noEnvFile(t))
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.InputDir != "/in" {
		t.Fatalf("expected input dir override, got %s", cfg.InputDir)
	}

	if cfg.CollisionPolicy != domain.CollisionReject || !cfg.ArchivePreserveExtension {
		t.Fatalf("expected archive overrides, got policy=%s preserve=%v", cfg.CollisionPolicy, cfg.ArchivePreserveExtension)
	}

	if cfg.ExtractionTimeout != 45*time.Second {
		t.Fatalf("expected extraction timeout override, got %s", cfg.ExtractionTimeout)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "GOOGLE_API_KEY=from-file\nLEDGER_PATH=from-file.csv\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("LEDGER_PATH", "from-env.csv")
	t.Setenv("GOOGLE_API_KEY", "")
	os.Unsetenv("GOOGLE_API_KEY")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.GoogleAPIKey != "from-file" {
		t.Fatalf("expected key from env file, got %q", cfg.GoogleAPIKey)
	}

	if cfg.LedgerPath != "from-env.csv" {
		t.Fatalf("expected environment to win, got %s", cfg.LedgerPath)
	}
}

func TestValidateMissingKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "  ")

	cfg, err := config.Load(noEnvFile(t))
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if err := cfg.Validate(); !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestLoadInvalidPolicy(t *testing.T) {
	t.Setenv("ARCHIVE_COLLISION_POLICY", "append")

	if _, err := config.Load(noEnvFile(t)); err == nil {
		t.Fatalf("expected error for invalid collision policy")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := config.Load(noEnvFile(t)); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
