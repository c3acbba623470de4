package ingestion

import "context"

// Summarizer produces a natural-language summary of text. contextHint carries
// surrounding document context (the macro summary during chunk annotation) and
// may be empty. maxRetries <= 0 falls back to the provider default.
type Summarizer interface {
	Summarize(ctx context.Context, text, contextHint string, maxRetries int) (string, error)
}

// EmbeddingProvider turns text into a fixed-dimension vector. dimensions <= 0
// leaves the model's native dimension in place.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text, model string, dimensions, maxRetries int) ([]float32, error)
}

// Chunker splits document text into ordered chunks. Must be pure: same input
// and config, same output.
type Chunker func(text string, cfg ChunkingConfig) []ChunkInput

const (
	ChunkTypeHeader    = "header"
	ChunkTypeParagraph = "paragraph"
)

// ChunkInput is one window of the source document, before annotation.
// Meta carries per-chunk facts the splitter knows and downstream stages
// should not recompute (rune offsets into the source, language hint).
type ChunkInput struct {
	Ord       int
	Content   string
	ChunkType string
	Meta      map[string]interface{}
}

// ChunkAnnotated is a fully annotated chunk ready for persistence. Meta is
// the input chunk's bag, passed through untouched.
type ChunkAnnotated struct {
	Ord          int
	Content      string
	ChunkType    string
	ChunkHash    string
	MicroSummary string
	Embedding    []float32
	Meta         map[string]interface{}
}

const (
	ChunkMetaStartRune = "start_rune"
	ChunkMetaEndRune   = "end_rune"
	ChunkMetaLanguage  = "language"
)

type ChunkingConfig struct {
	// MaxSize is the window length in runes, not bytes.
	MaxSize      int
	OverlapRatio float64
	// LanguageHint is recorded on every chunk's meta bag so annotation
	// prompts and downstream consumers know the source language.
	LanguageHint string
}

func (c ChunkingConfig) withDefaults() ChunkingConfig {
	if c.MaxSize <= 0 {
		c.MaxSize = 800
	}
	if c.OverlapRatio < 0 || c.OverlapRatio >= 1 {
		c.OverlapRatio = 0.12
	}
	return c
}

type EmbeddingConfig struct {
	Model          string
	MaxRetries     int
	MaxConcurrency int
	// RatePerSecond throttles upstream calls; zero disables the governor.
	RatePerSecond   float64
	TargetDimension int
}

func (c EmbeddingConfig) withDefaults() EmbeddingConfig {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 8
	}
	if c.TargetDimension <= 0 {
		c.TargetDimension = 1536
	}
	return c
}
