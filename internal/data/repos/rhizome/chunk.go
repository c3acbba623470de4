package rhizome

import (
	"context"

	"gorm.io/gorm"

	types "github.com/rhizomelab/rhizome-backend/internal/domain"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
)

type ChunkRepo interface {
	Create(ctx context.Context, tx *gorm.DB, chunks []*types.ChunkNode) ([]*types.ChunkNode, error)
	GetByRevisionID(ctx context.Context, tx *gorm.DB, revisionID int64) ([]*types.ChunkNode, error)
	CountByRevisionID(ctx context.Context, tx *gorm.DB, revisionID int64) (int64, error)
}

type chunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	return &chunkRepo{db: db, log: baseLog.With("repo", "ChunkRepo")}
}

func (r *chunkRepo) Create(ctx context.Context, tx *gorm.DB, chunks []*types.ChunkNode) ([]*types.ChunkNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(chunks) == 0 {
		return []*types.ChunkNode{}, nil
	}

	// Keep batches small because summaries and embeddings are large.
	const batchSize = 100

	if err := transaction.WithContext(ctx).CreateInBatches(chunks, batchSize).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func (r *chunkRepo) GetByRevisionID(ctx context.Context, tx *gorm.DB, revisionID int64) ([]*types.ChunkNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ChunkNode
	if err := transaction.WithContext(ctx).
		Where("revision_id = ?", revisionID).
		Order("ord ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chunkRepo) CountByRevisionID(ctx context.Context, tx *gorm.DB, revisionID int64) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(ctx).
		Model(&types.ChunkNode{}).
		Where("revision_id = ?", revisionID).
		Count(&n).Error
	return n, err
}
