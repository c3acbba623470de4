package rhizome

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/rhizomelab/rhizome-backend/internal/domain"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
)

type SysDictRepo interface {
	// GetOrCreate is idempotent: it returns the existing row for
	// (category, val) or inserts a new one. Safe to race against other
	// callers for the same pair; the losing insert is absorbed.
	GetOrCreate(ctx context.Context, tx *gorm.DB, category, val string) (*types.SysDict, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.SysDict, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.SysDict, error)
}

type sysDictRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSysDictRepo(db *gorm.DB, baseLog *logger.Logger) SysDictRepo {
	return &sysDictRepo{db: db, log: baseLog.With("repo", "SysDictRepo")}
}

func (r *sysDictRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, category, val string) (*types.SysDict, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now().UTC()
	entry := &types.SysDict{
		Category:   category,
		Val:        val,
		CreatedAt:  now,
		ModifiedAt: now,
	}

	// Insert-or-ignore, then read back. A concurrent duplicate insert hits
	// the unique (category, val) index and is dropped rather than surfaced.
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "category"}, {Name: "val"}},
			DoNothing: true,
		}).
		Create(entry).Error; err != nil {
		return nil, err
	}

	var out types.SysDict
	if err := transaction.WithContext(ctx).
		Where("category = ? AND val = ?", category, val).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sysDictRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.SysDict, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.SysDict
	if err := transaction.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &out, nil
}

func (r *sysDictRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.SysDict, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.SysDict
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
