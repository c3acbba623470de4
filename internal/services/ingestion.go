package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	repos "github.com/rhizomelab/rhizome-backend/internal/data/repos/rhizome"
	types "github.com/rhizomelab/rhizome-backend/internal/domain"
	"github.com/rhizomelab/rhizome-backend/internal/ingestion"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
)

// VectorStore mirrors chunk vectors to an external index. Implementations
// are best-effort collaborators; ingestion never depends on their success.
type VectorStore interface {
	UpsertChunkVectors(ctx context.Context, namespace string, chunks []ingestion.ChunkAnnotated) error
}

type IngestionService interface {
	IngestDocument(ctx context.Context, input IngestDocumentInput) (*types.Revision, []*types.ChunkNode, error)
}

type IngestDocumentInput struct {
	OriginID    int64
	Title       string
	Body        []byte
	ContentType string
	TagIDs      []int64
	EditorID    int64
	// Meta becomes the revision's meta_diff bag. A macro summary under
	// types.MetaKeyMacroSummary short-circuits the document-level call.
	Meta      map[string]interface{}
	Chunking  ingestion.ChunkingConfig
	Embedding ingestion.EmbeddingConfig
}

type ingestionService struct {
	db        *gorm.DB
	log       *logger.Logger
	origins   repos.OriginRepo
	blobs     repos.BlobRepo
	revisions repos.RevisionRepo
	chunks    repos.ChunkRepo
	annotator *ingestion.Annotator
	vectors   VectorStore
}

// NewIngestionService wires the document ingest path. vectors may be nil when
// no external index is configured.
func NewIngestionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	origins repos.OriginRepo,
	blobs repos.BlobRepo,
	revisions repos.RevisionRepo,
	chunks repos.ChunkRepo,
	annotator *ingestion.Annotator,
	vectors VectorStore,
) IngestionService {
	return &ingestionService{
		db:        db,
		log:       baseLog.With("service", "IngestionService"),
		origins:   origins,
		blobs:     blobs,
		revisions: revisions,
		chunks:    chunks,
		annotator: annotator,
		vectors:   vectors,
	}
}

// IngestDocument runs the full pipeline for one document revision: annotate
// every chunk upstream, then persist blob, revision, pointer move, and chunk
// rows in a single transaction. Any annotation or persistence failure leaves
// the origin exactly as it was.
func (s *ingestionService) IngestDocument(ctx context.Context, in IngestDocumentInput) (*types.Revision, []*types.ChunkNode, error) {
	origin, err := s.origins.GetByID(ctx, nil, in.OriginID)
	if err != nil {
		return nil, nil, fmt.Errorf("load origin %d: %w", in.OriginID, err)
	}

	// External calls happen before the transaction opens so a slow or failing
	// provider never holds database locks.
	annotated, err := s.annotator.Annotate(ctx, ingestion.AnnotateRequest{
		Text:      string(in.Body),
		Meta:      in.Meta,
		Chunking:  in.Chunking,
		Embedding: in.Embedding,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("annotate document: %w", err)
	}

	var metaDiff []byte
	if in.Meta != nil {
		metaDiff, err = json.Marshal(in.Meta)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal meta: %w", err)
		}
	}

	rev := &types.Revision{
		DataID:   in.OriginID,
		Title:    in.Title,
		Tags:     types.EncodeTagIDs(in.TagIDs),
		EditorID: in.EditorID,
		MetaDiff: metaDiff,
	}
	var rows []*types.ChunkNode

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hash, err := s.blobs.GetOrCreate(ctx, tx, in.Body, in.ContentType)
		if err != nil {
			return fmt.Errorf("store blob: %w", err)
		}
		rev.SummaryHash = &hash

		if err := s.revisions.Append(ctx, tx, rev); err != nil {
			return fmt.Errorf("append revision: %w", err)
		}

		rows = make([]*types.ChunkNode, 0, len(annotated))
		for _, c := range annotated {
			rows = append(rows, &types.ChunkNode{
				RevisionID:     rev.ID,
				ChunkHash:      c.ChunkHash,
				ChunkType:      c.ChunkType,
				ContentSummary: c.MicroSummary,
				Embedding:      types.EncodeVector(c.Embedding),
				Ord:            c.Ord,
			})
		}
		if _, err := s.chunks.Create(ctx, tx, rows); err != nil {
			return fmt.Errorf("persist chunks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("document ingested",
		"origin_id", in.OriginID,
		"revision_id", rev.ID,
		"chunks", len(rows))

	s.mirrorVectors(ctx, origin.URN, annotated)
	return rev, rows, nil
}

// mirrorVectors pushes chunk vectors to the external index, namespaced per
// origin. Failures are logged and swallowed: the database commit already
// happened and stays authoritative.
func (s *ingestionService) mirrorVectors(ctx context.Context, namespace string, chunks []ingestion.ChunkAnnotated) {
	if s.vectors == nil || len(chunks) == 0 {
		return
	}
	if err := s.vectors.UpsertChunkVectors(ctx, namespace, chunks); err != nil {
		s.log.Warn("vector mirror failed", "namespace", namespace, "error", err)
	}
}
