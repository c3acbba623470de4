package rhizome

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/rhizomelab/rhizome-backend/internal/domain"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
)

type OriginRepo interface {
	// Create inserts a new origin. Returns ErrDuplicateURN when the URN is
	// already taken; callers decide whether to re-fetch or fail.
	Create(ctx context.Context, tx *gorm.DB, origin *types.OriginData) error
	GetByURN(ctx context.Context, tx *gorm.DB, urn string) (*types.OriginData, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.OriginData, error)
	// UpdateCurrentRevision moves the curr_rev_id pointer. The revision must
	// belong to the same origin; a foreign revision is rejected with
	// ErrRevisionOriginMismatch before anything is written.
	UpdateCurrentRevision(ctx context.Context, tx *gorm.DB, originID, revisionID int64) error
	UpdateProps(ctx context.Context, tx *gorm.DB, originID int64, props []byte) error
}

type originRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOriginRepo(db *gorm.DB, baseLog *logger.Logger) OriginRepo {
	return &originRepo{db: db, log: baseLog.With("repo", "OriginRepo")}
}

func (r *originRepo) Create(ctx context.Context, tx *gorm.DB, origin *types.OriginData) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now().UTC()
	if origin.CreatedAt.IsZero() {
		origin.CreatedAt = now
	}
	origin.ModifiedAt = now
	if origin.Props == nil {
		origin.Props = []byte("{}")
	}

	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "urn"}},
			DoNothing: true,
		}).
		Create(origin)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return types.ErrDuplicateURN
	}
	return nil
}

func (r *originRepo) GetByURN(ctx context.Context, tx *gorm.DB, urn string) (*types.OriginData, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.OriginData
	if err := transaction.WithContext(ctx).Where("urn = ?", urn).First(&out).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &out, nil
}

func (r *originRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.OriginData, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.OriginData
	if err := transaction.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &out, nil
}

func (r *originRepo) UpdateCurrentRevision(ctx context.Context, tx *gorm.DB, originID, revisionID int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rev types.Revision
	if err := transaction.WithContext(ctx).
		Select("id", "data_id").
		First(&rev, revisionID).Error; err != nil {
		return translateNotFound(err)
	}
	if rev.DataID != originID {
		return types.ErrRevisionOriginMismatch
	}

	res := transaction.WithContext(ctx).
		Model(&types.OriginData{}).
		Where("id = ?", originID).
		Updates(map[string]interface{}{
			"curr_rev_id": revisionID,
			"modified_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *originRepo) UpdateProps(ctx context.Context, tx *gorm.DB, originID int64, props []byte) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(props) == 0 {
		props = []byte("{}")
	}
	return transaction.WithContext(ctx).
		Model(&types.OriginData{}).
		Where("id = ?", originID).
		Updates(map[string]interface{}{
			"props":       props,
			"modified_at": time.Now().UTC(),
		}).Error
}
