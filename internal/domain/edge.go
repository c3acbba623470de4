package domain

import "time"

// Well-known predicates seeded by ingestion.
const (
	PredicateContains  = "Contains"
	PredicateDependsOn = "Depends_On"
	PredicateRelatedTo = "Related_To"
)

// KnowledgeEdge is an explicit, confirmed fact between two origins. The
// (source, target, predicate) triple is unique; edges are idempotent facts,
// never inferred associations.
type KnowledgeEdge struct {
	SourceID    int64 `gorm:"column:source_id;primaryKey" json:"source_id"`
	TargetID    int64 `gorm:"column:target_id;primaryKey" json:"target_id"`
	PredicateID int64 `gorm:"column:predicate_id;primaryKey" json:"predicate_id"`

	Source    *OriginData `gorm:"constraint:OnDelete:CASCADE;foreignKey:SourceID;references:ID" json:"source,omitempty"`
	Target    *OriginData `gorm:"constraint:OnDelete:CASCADE;foreignKey:TargetID;references:ID" json:"target,omitempty"`
	Predicate *SysDict    `gorm:"foreignKey:PredicateID;references:ID" json:"predicate,omitempty"`

	Weight float64 `gorm:"column:weight;not null;default:1" json:"weight"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (KnowledgeEdge) TableName() string { return "knowledge_edges" }
