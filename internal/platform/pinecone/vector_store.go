package pinecone

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rhizomelab/rhizome-backend/internal/ingestion"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
)

// VectorStore mirrors chunk vectors into a Pinecone index, one namespace per
// origin URN. It implements services.VectorStore and is strictly best-effort:
// the database stays authoritative, the index is a projection.
type VectorStore struct {
	log       *logger.Logger
	pc        Client
	indexName string
	indexHost string
	nsPrefix  string
}

func NewVectorStore(log *logger.Logger, pc Client) (*VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}

	indexName := strings.TrimSpace(os.Getenv("PINECONE_INDEX_NAME"))
	if indexName == "" {
		return nil, fmt.Errorf("missing PINECONE_INDEX_NAME")
	}

	host := strings.TrimSpace(os.Getenv("PINECONE_INDEX_HOST"))
	nsPrefix := strings.TrimSpace(os.Getenv("PINECONE_NAMESPACE_PREFIX"))
	if nsPrefix == "" {
		nsPrefix = "rz"
	}

	// If host missing, bootstrap via describe_index (fine for local/dev).
	if host == "" {
		desc, err := pc.DescribeIndex(context.Background(), indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index",
			"index_name", indexName,
			"index_host", host,
		)
	}

	return &VectorStore{
		log:       log.With("service", "PineconeVectorStore"),
		pc:        pc,
		indexName: indexName,
		indexHost: host,
		nsPrefix:  nsPrefix,
	}, nil
}

// UpsertChunkVectors pushes annotated chunk vectors under the origin's
// namespace. Vector ids are the chunk content hashes, so re-ingesting the
// same content overwrites in place.
func (s *VectorStore) UpsertChunkVectors(ctx context.Context, namespace string, chunks []ingestion.ChunkAnnotated) error {
	if s == nil || s.pc == nil || len(chunks) == 0 {
		return nil
	}

	vectors := make([]Vector, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		vectors = append(vectors, Vector{
			ID:     c.ChunkHash,
			Values: c.Embedding,
			Metadata: map[string]any{
				"ord":        c.Ord,
				"chunk_type": c.ChunkType,
				"summary":    c.MicroSummary,
			},
		})
	}
	if len(vectors) == 0 {
		return nil
	}

	_, err := s.pc.UpsertVectors(ctx, s.indexHost, UpsertRequest{
		Namespace: s.qualifyNamespace(namespace),
		Vectors:   vectors,
	})
	return err
}

// QueryChunkHashes returns the chunk hashes nearest to q inside one origin's
// namespace, best match first.
func (s *VectorStore) QueryChunkHashes(ctx context.Context, namespace string, q []float32, topK int) ([]string, error) {
	resp, err := s.pc.Query(ctx, s.indexHost, QueryRequest{
		Namespace: s.qualifyNamespace(namespace),
		Vector:    q,
		TopK:      topK,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (s *VectorStore) qualifyNamespace(namespace string) string {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return s.nsPrefix
	}
	return s.nsPrefix + ":" + namespace
}
