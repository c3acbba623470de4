package rhizome

import (
	"context"
	"time"

	"gorm.io/gorm"

	types "github.com/rhizomelab/rhizome-backend/internal/domain"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
)

type TreeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, node *types.TreeNode) error
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.TreeNode, error)
	GetChildren(ctx context.Context, tx *gorm.DB, parentID int64) ([]*types.TreeNode, error)
	// GetStructure loads the subtree rooted at rootID breadth-first, filling
	// Children on every node. The projection is small by construction (one
	// row per visible tree entry), so whole-subtree loads are acceptable.
	GetStructure(ctx context.Context, tx *gorm.DB, rootID int64) (*types.TreeNode, error)
	Move(ctx context.Context, tx *gorm.DB, nodeID int64, newParentID *int64, ord int) error
}

type treeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTreeRepo(db *gorm.DB, baseLog *logger.Logger) TreeRepo {
	return &treeRepo{db: db, log: baseLog.With("repo", "TreeRepo")}
}

func (r *treeRepo) Create(ctx context.Context, tx *gorm.DB, node *types.TreeNode) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}
	node.ModifiedAt = now
	return transaction.WithContext(ctx).Create(node).Error
}

func (r *treeRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.TreeNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.TreeNode
	if err := transaction.WithContext(ctx).First(&out, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &out, nil
}

func (r *treeRepo) GetChildren(ctx context.Context, tx *gorm.DB, parentID int64) ([]*types.TreeNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.TreeNode
	if err := transaction.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("ord ASC, name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *treeRepo) GetStructure(ctx context.Context, tx *gorm.DB, rootID int64) (*types.TreeNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	root, err := r.GetByID(ctx, transaction, rootID)
	if err != nil {
		return nil, err
	}

	byID := map[int64]*types.TreeNode{root.ID: root}
	frontier := []int64{root.ID}

	for len(frontier) > 0 {
		var level []*types.TreeNode
		if err := transaction.WithContext(ctx).
			Where("parent_id IN ?", frontier).
			Order("ord ASC, name ASC").
			Find(&level).Error; err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for _, n := range level {
			// A corrupted parent cycle would otherwise never drain the frontier.
			if _, seen := byID[n.ID]; seen {
				continue
			}
			parent := byID[*n.ParentID]
			parent.Children = append(parent.Children, n)
			byID[n.ID] = n
			frontier = append(frontier, n.ID)
		}
	}
	return root, nil
}

func (r *treeRepo) Move(ctx context.Context, tx *gorm.DB, nodeID int64, newParentID *int64, ord int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.TreeNode{}).
		Where("id = ?", nodeID).
		Updates(map[string]interface{}{
			"parent_id":   newParentID,
			"ord":         ord,
			"modified_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}
