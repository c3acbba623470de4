package rhizome

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/rhizomelab/rhizome-backend/internal/domain"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
)

type EdgeRepo interface {
	// Link records a confirmed fact. An existing (source, target, predicate)
	// triple returns ErrDuplicateEdge; callers normally treat that as
	// success since edges are idempotent.
	Link(ctx context.Context, tx *gorm.DB, sourceID, targetID, predicateID int64, weight float64) error
	// Neighbors returns outgoing edges from originID. predicateFilter matches
	// predicate names (sys_dict values); empty means all predicates. depth 1
	// is one hop; larger depths walk breadth-first with a visited set, since
	// the graph is not guaranteed acyclic.
	Neighbors(ctx context.Context, tx *gorm.DB, originID int64, predicateFilter []string, depth int) ([]*types.KnowledgeEdge, error)
}

type edgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEdgeRepo(db *gorm.DB, baseLog *logger.Logger) EdgeRepo {
	return &edgeRepo{db: db, log: baseLog.With("repo", "EdgeRepo")}
}

func (r *edgeRepo) Link(ctx context.Context, tx *gorm.DB, sourceID, targetID, predicateID int64, weight float64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	edge := &types.KnowledgeEdge{
		SourceID:    sourceID,
		TargetID:    targetID,
		PredicateID: predicateID,
		Weight:      weight,
		CreatedAt:   time.Now().UTC(),
	}

	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "source_id"}, {Name: "target_id"}, {Name: "predicate_id"},
			},
			DoNothing: true,
		}).
		Create(edge)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return types.ErrDuplicateEdge
	}
	return nil
}

func (r *edgeRepo) Neighbors(ctx context.Context, tx *gorm.DB, originID int64, predicateFilter []string, depth int) ([]*types.KnowledgeEdge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if depth < 1 {
		depth = 1
	}

	visited := map[int64]bool{originID: true}
	frontier := []int64{originID}
	var out []*types.KnowledgeEdge

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		edges, err := r.hop(ctx, transaction, frontier, predicateFilter)
		if err != nil {
			return nil, err
		}

		next := make([]int64, 0, len(edges))
		for _, e := range edges {
			out = append(out, e)
			if !visited[e.TargetID] {
				visited[e.TargetID] = true
				next = append(next, e.TargetID)
			}
		}
		frontier = next
	}
	return out, nil
}

func (r *edgeRepo) hop(ctx context.Context, tx *gorm.DB, sourceIDs []int64, predicateFilter []string) ([]*types.KnowledgeEdge, error) {
	q := tx.WithContext(ctx).
		Model(&types.KnowledgeEdge{}).
		Preload("Predicate").
		Preload("Target").
		Where("source_id IN ?", sourceIDs)

	if len(predicateFilter) > 0 {
		q = q.Joins("JOIN sys_dict ON sys_dict.id = knowledge_edges.predicate_id").
			Where("sys_dict.val IN ?", predicateFilter)
	}

	var edges []*types.KnowledgeEdge
	if err := q.Order("source_id, target_id").Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}
