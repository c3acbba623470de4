package ingestion

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	types "github.com/rhizomelab/rhizome-backend/internal/domain"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
)

// AnnotateRequest carries one document through the annotation pipeline.
// Meta is the revision metadata; when it already holds a macro summary
// (types.MetaKeyMacroSummary) that summary is reused instead of paying
// for another whole-document call.
type AnnotateRequest struct {
	Text      string
	Meta      map[string]interface{}
	Chunking  ChunkingConfig
	Embedding EmbeddingConfig
}

type Annotator struct {
	summarizer Summarizer
	embedder   EmbeddingProvider
	chunk      Chunker
	log        *logger.Logger
}

func NewAnnotator(summarizer Summarizer, embedder EmbeddingProvider, chunk Chunker, baseLog *logger.Logger) *Annotator {
	if chunk == nil {
		chunk = Chunk
	}
	return &Annotator{
		summarizer: summarizer,
		embedder:   embedder,
		chunk:      chunk,
		log:        baseLog.With("component", "Annotator"),
	}
}

// Annotate chunks the document and annotates every chunk concurrently:
// micro summary (macro as context), composite embedding, content hash.
// Fail-fast: the first error cancels the group and no partial results
// escape. Output is sorted by ordinal regardless of completion order.
func (a *Annotator) Annotate(ctx context.Context, doc AnnotateRequest) ([]ChunkAnnotated, error) {
	cfg := doc.Embedding.withDefaults()
	chunks := a.chunk(doc.Text, doc.Chunking)

	macro, err := a.macroSummary(ctx, doc, cfg)
	if err != nil {
		return nil, fmt.Errorf("macro summary: %w", err)
	}

	a.log.Debug("annotating document",
		"chunks", len(chunks),
		"max_concurrency", cfg.MaxConcurrency,
		"target_dimension", cfg.TargetDimension)

	results := make([]ChunkAnnotated, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)

	for i := range chunks {
		i := i
		g.Go(func() error {
			if err := a.throttle(gctx, cfg.RatePerSecond); err != nil {
				return err
			}
			c := chunks[i]

			micro, err := a.summarizer.Summarize(gctx, c.Content, macro, cfg.MaxRetries)
			if err != nil {
				return fmt.Errorf("summarize chunk %d: %w", c.Ord, err)
			}

			// The vector carries document context, chunk context, and the
			// chunk itself; the hash stays bound to the original content only.
			embedText := macro + "\n\n" + micro + "\n\n" + c.Content
			vec, err := a.embedder.Embed(gctx, embedText, cfg.Model, cfg.TargetDimension, cfg.MaxRetries)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", c.Ord, err)
			}
			if len(vec) != cfg.TargetDimension {
				return &types.DimensionMismatchError{Want: cfg.TargetDimension, Got: len(vec)}
			}

			results[i] = ChunkAnnotated{
				Ord:          c.Ord,
				Content:      c.Content,
				ChunkType:    c.ChunkType,
				ChunkHash:    types.HashBytes([]byte(c.Content)),
				MicroSummary: micro,
				Embedding:    vec,
				Meta:         c.Meta,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Ord < results[j].Ord })
	return results, nil
}

func (a *Annotator) macroSummary(ctx context.Context, doc AnnotateRequest, cfg EmbeddingConfig) (string, error) {
	if v, ok := doc.Meta[types.MetaKeyMacroSummary].(string); ok && v != "" {
		a.log.Debug("reusing macro summary from revision meta")
		return v, nil
	}
	return a.summarizer.Summarize(ctx, doc.Text, "", cfg.MaxRetries)
}

// throttle is an approximate governor: each admitted task waits one
// inter-arrival interval before calling upstream.
func (a *Annotator) throttle(ctx context.Context, ratePerSecond float64) error {
	if ratePerSecond <= 0 {
		return nil
	}
	t := time.NewTimer(time.Duration(float64(time.Second) / ratePerSecond))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
