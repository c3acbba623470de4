package db

import (
	"gorm.io/gorm"

	types "github.com/rhizomelab/rhizome-backend/internal/domain"
)

// AutoMigrateAll migrates the full rhizome schema. Order matters for the
// sqlite test driver: referenced tables first.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Normalization + content store
		&types.SysDict{},
		&types.BlobRecord{},

		// Identity + history
		&types.OriginData{},
		&types.Revision{},
		&types.ChunkNode{},

		// Graph + projection
		&types.KnowledgeEdge{},
		&types.TreeNode{},
	)
}
