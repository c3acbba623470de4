package domain

import "time"

// Tree view types.
const (
	ViewTypeFolder = "Folder"
	ViewTypeFile   = "File"
)

// TreeNode is the mutable, human-facing hierarchy. It is a projection over
// identities: one OriginData may appear in any number of tree nodes, and
// moving a node never touches identity or revision history.
type TreeNode struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ParentID *int64 `gorm:"column:parent_id;uniqueIndex:uq_tree_node_slug" json:"parent_id,omitempty"`

	Parent *TreeNode `gorm:"constraint:OnDelete:CASCADE;foreignKey:ParentID;references:ID" json:"parent,omitempty"`

	// Directories typically carry no origin reference.
	DataID *int64      `gorm:"column:data_id" json:"data_id,omitempty"`
	Data   *OriginData `gorm:"constraint:OnDelete:SET NULL;foreignKey:DataID;references:ID" json:"data,omitempty"`

	ViewType string `gorm:"column:view_type;size:20;not null;uniqueIndex:uq_tree_node_slug" json:"view_type"`
	Name     string `gorm:"column:name;size:255;not null" json:"name"`
	Slug     string `gorm:"column:slug;size:255;not null;uniqueIndex:uq_tree_node_slug" json:"slug"`
	Ord      int    `gorm:"column:ord;not null;default:0" json:"ord"`

	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	ModifiedAt time.Time `gorm:"not null" json:"modified_at"`

	// Populated by TreeRepo.GetStructure, not a persisted association.
	Children []*TreeNode `gorm:"-" json:"children,omitempty"`
}

func (TreeNode) TableName() string { return "tree_nodes" }
