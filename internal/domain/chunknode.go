package domain

import (
	"time"

	"gorm.io/datatypes"
)

// ChunkNode is one passage-level unit of a revision. Ordinals are zero-based,
// unique, and contiguous within a revision, matching original document order.
type ChunkNode struct {
	ID         int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RevisionID int64 `gorm:"column:revision_id;not null;index;uniqueIndex:uq_chunk_rev_ord" json:"revision_id"`

	Revision *Revision `gorm:"constraint:OnDelete:CASCADE;foreignKey:RevisionID;references:ID" json:"revision,omitempty"`

	ChunkHash string `gorm:"column:chunk_hash;type:char(64);not null" json:"chunk_hash"`
	ChunkType string `gorm:"column:chunk_type;size:20" json:"chunk_type"`

	ContentSummary string         `gorm:"column:content_summary;type:text" json:"content_summary"`
	Embedding      datatypes.JSON `gorm:"column:embedding" json:"embedding,omitempty"`

	Ord int `gorm:"column:ord;not null;uniqueIndex:uq_chunk_rev_ord" json:"ord"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ChunkNode) TableName() string { return "chunk_nodes" }
