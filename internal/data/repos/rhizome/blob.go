package rhizome

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/rhizomelab/rhizome-backend/internal/domain"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
)

type BlobRepo interface {
	// GetOrCreate stores body under its SHA-256 digest and returns the hash.
	// Identical bytes always map to the same single row, even under
	// concurrent callers; the duplicate insert is absorbed, not surfaced.
	GetOrCreate(ctx context.Context, tx *gorm.DB, body []byte, contentType string) (string, error)
	Get(ctx context.Context, tx *gorm.DB, hash string) (*types.BlobRecord, error)
}

type blobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBlobRepo(db *gorm.DB, baseLog *logger.Logger) BlobRepo {
	return &blobRepo{db: db, log: baseLog.With("repo", "BlobRepo")}
}

func (r *blobRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, body []byte, contentType string) (string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if contentType == "" {
		contentType = "text/markdown"
	}

	hash := types.HashBytes(body)
	blob := &types.BlobRecord{
		Hash:        hash,
		ContentType: contentType,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hash"}},
			DoNothing: true,
		}).
		Create(blob).Error; err != nil {
		return "", err
	}
	return hash, nil
}

func (r *blobRepo) Get(ctx context.Context, tx *gorm.DB, hash string) (*types.BlobRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.BlobRecord
	if err := transaction.WithContext(ctx).Where("hash = ?", hash).First(&out).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &out, nil
}
