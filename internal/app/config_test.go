package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RHIZOME_CONFIG", "")
	cfg, err := Load(testLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Chunking.MaxSize != 800 {
		t.Fatalf("chunk max size default = %d", cfg.Chunking.MaxSize)
	}
	if cfg.Embedding.MaxConcurrency != 8 || cfg.Embedding.TargetDimension != 1536 {
		t.Fatalf("embedding defaults wrong: %+v", cfg.Embedding)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RHIZOME_CONFIG", "")
	t.Setenv("CHUNK_MAX_SIZE", "500")
	t.Setenv("EMBED_RATE_PER_SECOND", "2.5")

	cfg, err := Load(testLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Chunking.MaxSize != 500 {
		t.Fatalf("env override ignored: %d", cfg.Chunking.MaxSize)
	}
	if cfg.Embedding.RatePerSecond != 2.5 {
		t.Fatalf("env override ignored: %v", cfg.Embedding.RatePerSecond)
	}
}

func TestLoadYAMLOverlayWinsOverEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rhizome.yaml")
	body := []byte("chunking:\n  max_size: 400\nembedding:\n  max_concurrency: 2\n  model: text-embedding-3-large\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("RHIZOME_CONFIG", path)
	t.Setenv("CHUNK_MAX_SIZE", "999")

	cfg, err := Load(testLogger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Chunking.MaxSize != 400 {
		t.Fatalf("overlay must win over env, got %d", cfg.Chunking.MaxSize)
	}
	if cfg.Embedding.MaxConcurrency != 2 || cfg.Embedding.Model != "text-embedding-3-large" {
		t.Fatalf("overlay not applied: %+v", cfg.Embedding)
	}
	// Keys the overlay does not set keep their env/default values.
	if cfg.Embedding.TargetDimension != 1536 {
		t.Fatalf("unset overlay key must keep default, got %d", cfg.Embedding.TargetDimension)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte(":\t not yaml ["), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RHIZOME_CONFIG", path)

	if _, err := Load(testLogger(t)); err == nil {
		t.Fatalf("expected parse error")
	}
}
