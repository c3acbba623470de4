package rhizome

import (
	"context"
	"time"

	"gorm.io/gorm"

	types "github.com/rhizomelab/rhizome-backend/internal/domain"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
)

type RevisionRepo interface {
	// Append inserts an immutable revision and moves the owning origin's
	// current-revision pointer, as one unit of work. When tx is nil a new
	// transaction wraps both writes; a reader never observes the pointer
	// referencing an uncommitted revision.
	Append(ctx context.Context, tx *gorm.DB, rev *types.Revision) error
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Revision, error)
	GetByOriginID(ctx context.Context, tx *gorm.DB, originID int64) ([]*types.Revision, error)
}

type revisionRepo struct {
	db      *gorm.DB
	log     *logger.Logger
	origins OriginRepo
}

func NewRevisionRepo(db *gorm.DB, baseLog *logger.Logger, origins OriginRepo) RevisionRepo {
	return &revisionRepo{db: db, log: baseLog.With("repo", "RevisionRepo"), origins: origins}
}

func (r *revisionRepo) Append(ctx context.Context, tx *gorm.DB, rev *types.Revision) error {
	if tx != nil {
		return r.appendIn(ctx, tx, rev)
	}
	return r.db.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		return r.appendIn(ctx, inner, rev)
	})
}

func (r *revisionRepo) appendIn(ctx context.Context, tx *gorm.DB, rev *types.Revision) error {
	now := time.Now().UTC()
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = now
	}
	rev.ModifiedAt = now

	if err := tx.WithContext(ctx).Create(rev).Error; err != nil {
		return err
	}
	return r.origins.UpdateCurrentRevision(ctx, tx, rev.DataID, rev.ID)
}

func (r *revisionRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Revision, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Revision
	if err := transaction.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &out, nil
}

func (r *revisionRepo) GetByOriginID(ctx context.Context, tx *gorm.DB, originID int64) ([]*types.Revision, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Revision
	if err := transaction.WithContext(ctx).
		Where("data_id = ?", originID).
		Order("id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
