package rhizome

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	types "github.com/rhizomelab/rhizome-backend/internal/domain"
	"github.com/rhizomelab/rhizome-backend/internal/data/repos/testutil"
)

func seedTree(t *testing.T, gdb *gorm.DB, repo TreeRepo) (root, docs, guide, readme *types.TreeNode) {
	t.Helper()
	ctx := testutil.Ctx(t)

	root = &types.TreeNode{ViewType: types.ViewTypeFolder, Name: "repo", Slug: "repo"}
	if err := repo.Create(ctx, nil, root); err != nil {
		t.Fatalf("create root: %v", err)
	}
	docs = &types.TreeNode{ParentID: &root.ID, ViewType: types.ViewTypeFolder, Name: "docs", Slug: "docs", Ord: 0}
	if err := repo.Create(ctx, nil, docs); err != nil {
		t.Fatalf("create docs: %v", err)
	}
	guide = &types.TreeNode{ParentID: &docs.ID, ViewType: types.ViewTypeFile, Name: "guide.md", Slug: "guide-md", Ord: 0}
	if err := repo.Create(ctx, nil, guide); err != nil {
		t.Fatalf("create guide: %v", err)
	}
	readme = &types.TreeNode{ParentID: &root.ID, ViewType: types.ViewTypeFile, Name: "README.md", Slug: "readme-md", Ord: 1}
	if err := repo.Create(ctx, nil, readme); err != nil {
		t.Fatalf("create readme: %v", err)
	}
	return root, docs, guide, readme
}

func TestTreeGetStructure(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := testutil.Ctx(t)
	repo := NewTreeRepo(gdb, testutil.Logger(t))
	root, docs, guide, readme := seedTree(t, gdb, repo)

	got, err := repo.GetStructure(ctx, nil, root.ID)
	if err != nil {
		t.Fatalf("structure: %v", err)
	}
	if len(got.Children) != 2 {
		t.Fatalf("root should have 2 children, got %d", len(got.Children))
	}
	if got.Children[0].ID != docs.ID || got.Children[1].ID != readme.ID {
		t.Fatalf("children out of ord order: %d, %d", got.Children[0].ID, got.Children[1].ID)
	}
	if len(got.Children[0].Children) != 1 || got.Children[0].Children[0].ID != guide.ID {
		t.Fatalf("docs subtree not populated")
	}
}

func TestTreeGetChildrenOrdering(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := testutil.Ctx(t)
	repo := NewTreeRepo(gdb, testutil.Logger(t))
	root, docs, _, readme := seedTree(t, gdb, repo)

	children, err := repo.GetChildren(ctx, nil, root.ID)
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	if children[0].ID != docs.ID || children[1].ID != readme.ID {
		t.Fatalf("expected ord ordering docs then readme")
	}
}

func TestTreeGetStructureSurvivesParentCycle(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := testutil.Ctx(t)
	repo := NewTreeRepo(gdb, testutil.Logger(t))
	_, docs, guide, _ := seedTree(t, gdb, repo)

	// Corrupt the projection: docs becomes a child of its own child.
	if err := gdb.Model(&types.TreeNode{}).
		Where("id = ?", docs.ID).
		Update("parent_id", guide.ID).Error; err != nil {
		t.Fatalf("corrupt parent: %v", err)
	}

	got, err := repo.GetStructure(ctx, nil, docs.ID)
	if err != nil {
		t.Fatalf("structure must terminate on a cyclic parent chain: %v", err)
	}
	if len(got.Children) != 1 || got.Children[0].ID != guide.ID {
		t.Fatalf("docs subtree not populated")
	}
	if len(got.Children[0].Children) != 0 {
		t.Fatalf("cycle edge must not re-enter the subtree")
	}
}

func TestTreeMove(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := testutil.Ctx(t)
	repo := NewTreeRepo(gdb, testutil.Logger(t))
	root, docs, _, readme := seedTree(t, gdb, repo)

	if err := repo.Move(ctx, nil, readme.ID, &docs.ID, 5); err != nil {
		t.Fatalf("move: %v", err)
	}

	got, err := repo.GetByID(ctx, nil, readme.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.ParentID == nil || *got.ParentID != docs.ID {
		t.Fatalf("parent not updated")
	}
	if got.Ord != 5 {
		t.Fatalf("ord not updated, got %d", got.Ord)
	}

	rootChildren, err := repo.GetChildren(ctx, nil, root.ID)
	if err != nil {
		t.Fatalf("root children: %v", err)
	}
	if len(rootChildren) != 1 {
		t.Fatalf("root should have 1 child after move, got %d", len(rootChildren))
	}
}

func TestTreeMoveMissingNode(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := testutil.Ctx(t)
	repo := NewTreeRepo(gdb, testutil.Logger(t))

	if err := repo.Move(ctx, nil, 4242, nil, 0); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
