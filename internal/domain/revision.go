package domain

import (
	"time"

	"gorm.io/datatypes"
)

// MetaKeyMacroSummary is the MetaDiff key holding a precomputed document-level
// summary. When present the annotation pipeline reuses it instead of calling
// the summarizer again.
const MetaKeyMacroSummary = "macro_summary"

// Revision is one append-only snapshot of an OriginData. Rows are never
// mutated after creation; the owning origin's pointer moves instead.
type Revision struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	DataID int64 `gorm:"column:data_id;not null;index" json:"data_id"`

	OriginData *OriginData `gorm:"constraint:OnDelete:CASCADE;foreignKey:DataID;references:ID" json:"origin_data,omitempty"`

	Title       string  `gorm:"column:title;size:512" json:"title"`
	SummaryHash *string `gorm:"column:summary_hash;type:char(64)" json:"summary_hash,omitempty"`

	SummaryBlob *BlobRecord `gorm:"foreignKey:SummaryHash;references:Hash" json:"summary_blob,omitempty"`

	// Tags is a JSON array of sys_dict ids.
	Tags datatypes.JSON `gorm:"column:tags" json:"tags,omitempty"`

	// Whole-document embedding, stored as a JSON array of floats. Nullable;
	// dimension is validated by the pipeline, not the column.
	Embedding datatypes.JSON `gorm:"column:embedding" json:"embedding,omitempty"`

	EditorID int64          `gorm:"column:editor_id;not null" json:"editor_id"`
	Editor   *SysDict       `gorm:"foreignKey:EditorID;references:ID" json:"editor,omitempty"`
	MetaDiff datatypes.JSON `gorm:"column:meta_diff" json:"meta_diff,omitempty"`

	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	ModifiedAt time.Time `gorm:"not null" json:"modified_at"`
}

func (Revision) TableName() string { return "revisions" }
