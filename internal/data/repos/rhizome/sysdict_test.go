package rhizome

import (
	"sync"
	"testing"

	types "github.com/rhizomelab/rhizome-backend/internal/domain"
	"github.com/rhizomelab/rhizome-backend/internal/data/repos/testutil"
)

func TestSysDictGetOrCreateIdempotent(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := testutil.Ctx(t)
	repo := NewSysDictRepo(gdb, testutil.Logger(t))

	first, err := repo.GetOrCreate(ctx, nil, types.CategoryPredicate, "contains")
	if err != nil {
		t.Fatalf("first GetOrCreate: %v", err)
	}
	second, err := repo.GetOrCreate(ctx, nil, types.CategoryPredicate, "contains")
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected one dict row, got ids %d and %d", first.ID, second.ID)
	}

	var n int64
	if err := gdb.Model(&types.SysDict{}).
		Where("category = ? AND val = ?", types.CategoryPredicate, "contains").
		Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}

func TestSysDictGetOrCreateConcurrent(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := testutil.Ctx(t)
	repo := NewSysDictRepo(gdb, testutil.Logger(t))

	const workers = 8
	ids := make([]int64, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, err := repo.GetOrCreate(ctx, nil, types.CategoryTag, "golang")
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = entry.ID
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}
	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("worker %d got id %d, worker 0 got %d", i, ids[i], ids[0])
		}
	}

	var n int64
	if err := gdb.Model(&types.SysDict{}).
		Where("category = ? AND val = ?", types.CategoryTag, "golang").
		Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly 1 row after %d racing callers, got %d", workers, n)
	}
}

func TestSysDictDistinctCategoriesShareVal(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := testutil.Ctx(t)
	repo := NewSysDictRepo(gdb, testutil.Logger(t))

	a, err := repo.GetOrCreate(ctx, nil, types.CategoryTag, "github")
	if err != nil {
		t.Fatalf("tag github: %v", err)
	}
	b, err := repo.GetOrCreate(ctx, nil, types.CategorySource, "github")
	if err != nil {
		t.Fatalf("source github: %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("same val under different categories must be distinct rows")
	}
}

func TestSysDictGetByIDs(t *testing.T) {
	gdb := testutil.DB(t)
	ctx := testutil.Ctx(t)
	repo := NewSysDictRepo(gdb, testutil.Logger(t))

	a := testutil.SeedDict(t, gdb, types.CategoryTag, "alpha")
	b := testutil.SeedDict(t, gdb, types.CategoryTag, "beta")

	got, err := repo.GetByIDs(ctx, nil, []int64{a.ID, b.ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}

	empty, err := repo.GetByIDs(ctx, nil, nil)
	if err != nil {
		t.Fatalf("GetByIDs empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no rows for empty id list, got %d", len(empty))
	}
}
