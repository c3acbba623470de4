package domain

import (
	"time"

	"gorm.io/datatypes"
)

// OriginData is the identity layer. The URN is permanent and globally unique;
// location, content, and the current-revision pointer may all change around it.
type OriginData struct {
	ID  int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	URN string `gorm:"column:urn;size:255;not null;uniqueIndex:uq_origin_urn" json:"urn"`

	SrcSysID int64 `gorm:"column:src_sys_id;not null" json:"src_sys_id"`
	DtypeID  int64 `gorm:"column:dtype_id;not null" json:"dtype_id"`

	SourceSystem *SysDict `gorm:"foreignKey:SrcSysID;references:ID" json:"source_system,omitempty"`
	DataType     *SysDict `gorm:"foreignKey:DtypeID;references:ID" json:"data_type,omitempty"`

	Props datatypes.JSON `gorm:"column:props" json:"props"`
	Flags int            `gorm:"column:flags;not null;default:0" json:"flags"`

	// Pointer to the current revision. Nullable on insert; the revision is
	// created after the origin, then the pointer is set in the same unit of
	// work. Must only ever reference a revision whose DataID is this ID.
	CurrRevID *int64 `gorm:"column:curr_rev_id" json:"curr_rev_id,omitempty"`

	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	ModifiedAt time.Time `gorm:"not null" json:"modified_at"`
}

func (OriginData) TableName() string { return "origin_data" }
