package app

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rhizomelab/rhizome-backend/internal/ingestion"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
	"github.com/rhizomelab/rhizome-backend/internal/utils"
)

// Config holds the ingestion tuning knobs. Values come from the environment
// first; when RHIZOME_CONFIG points at a YAML file, that file overrides the
// environment for any key it sets.
type Config struct {
	Chunking  ingestion.ChunkingConfig
	Embedding ingestion.EmbeddingConfig
}

type yamlConfig struct {
	Chunking struct {
		MaxSize      *int     `yaml:"max_size"`
		OverlapRatio *float64 `yaml:"overlap_ratio"`
		LanguageHint *string  `yaml:"language_hint"`
	} `yaml:"chunking"`
	Embedding struct {
		Model           *string  `yaml:"model"`
		MaxRetries      *int     `yaml:"max_retries"`
		MaxConcurrency  *int     `yaml:"max_concurrency"`
		RatePerSecond   *float64 `yaml:"rate_per_second"`
		TargetDimension *int     `yaml:"target_dimension"`
	} `yaml:"embedding"`
}

func Load(log *logger.Logger) (*Config, error) {
	cfg := &Config{
		Chunking: ingestion.ChunkingConfig{
			MaxSize:      utils.GetEnvAsInt("CHUNK_MAX_SIZE", 800, log),
			OverlapRatio: utils.GetEnvAsFloat("CHUNK_OVERLAP_RATIO", 0.12, log),
			LanguageHint: utils.GetEnv("CHUNK_LANGUAGE_HINT", "", log),
		},
		Embedding: ingestion.EmbeddingConfig{
			Model:           utils.GetEnv("EMBED_MODEL", "", log),
			MaxRetries:      utils.GetEnvAsInt("EMBED_MAX_RETRIES", 0, log),
			MaxConcurrency:  utils.GetEnvAsInt("EMBED_MAX_CONCURRENCY", 8, log),
			RatePerSecond:   utils.GetEnvAsFloat("EMBED_RATE_PER_SECOND", 0, log),
			TargetDimension: utils.GetEnvAsInt("EMBED_TARGET_DIMENSION", 1536, log),
		},
	}

	path := strings.TrimSpace(os.Getenv("RHIZOME_CONFIG"))
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var overlay yamlConfig
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if v := overlay.Chunking.MaxSize; v != nil {
		cfg.Chunking.MaxSize = *v
	}
	if v := overlay.Chunking.OverlapRatio; v != nil {
		cfg.Chunking.OverlapRatio = *v
	}
	if v := overlay.Chunking.LanguageHint; v != nil {
		cfg.Chunking.LanguageHint = *v
	}
	if v := overlay.Embedding.Model; v != nil {
		cfg.Embedding.Model = *v
	}
	if v := overlay.Embedding.MaxRetries; v != nil {
		cfg.Embedding.MaxRetries = *v
	}
	if v := overlay.Embedding.MaxConcurrency; v != nil {
		cfg.Embedding.MaxConcurrency = *v
	}
	if v := overlay.Embedding.RatePerSecond; v != nil {
		cfg.Embedding.RatePerSecond = *v
	}
	if v := overlay.Embedding.TargetDimension; v != nil {
		cfg.Embedding.TargetDimension = *v
	}

	log.Info("configuration loaded", "overlay", path)
	return cfg, nil
}
