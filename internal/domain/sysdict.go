package domain

import "time"

// SysDict categories used across the store.
const (
	CategorySource    = "SOURCE"
	CategoryDataType  = "DTYPE"
	CategoryPredicate = "PRED"
	CategoryTag       = "TAG"
	CategoryEditor    = "EDITOR"
)

// SysDict is a normalized dictionary entry: one row per distinct
// (category, value) pair. Immutable once created.
type SysDict struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Category string `gorm:"column:category;size:20;not null;uniqueIndex:uq_sys_dict_cat_val" json:"category"`
	Val      string `gorm:"column:val;type:text;not null;uniqueIndex:uq_sys_dict_cat_val" json:"val"`

	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	ModifiedAt time.Time `gorm:"not null" json:"modified_at"`
}

func (SysDict) TableName() string { return "sys_dict" }
