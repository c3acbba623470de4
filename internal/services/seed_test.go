package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/gorm"

	repos "github.com/rhizomelab/rhizome-backend/internal/data/repos/rhizome"
	"github.com/rhizomelab/rhizome-backend/internal/data/repos/testutil"
	types "github.com/rhizomelab/rhizome-backend/internal/domain"
	"github.com/rhizomelab/rhizome-backend/internal/ingestion"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/urnutil"
)

type fakeSource struct {
	info    SourceInfo
	entries []SourceEntry
	files   map[string][]byte
	readErr error
}

func (f *fakeSource) Info(ctx context.Context) (*SourceInfo, error) {
	info := f.info
	return &info, nil
}

func (f *fakeSource) ListEntries(ctx context.Context) ([]SourceEntry, error) {
	return f.entries, nil
}

func (f *fakeSource) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	body, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("no such file %q", path)
	}
	return body, nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		info: SourceInfo{Name: "demo-repo", Owner: "rhizomelab", Description: "demo", Language: "Go"},
		entries: []SourceEntry{
			{Path: "docs", Dir: true},
			{Path: "docs/guides", Dir: true},
			{Path: "README.md", Size: 20},
			{Path: "docs/guides/intro.md", Size: 30},
			{Path: "main.go", Size: 25},
		},
		files: map[string][]byte{
			"README.md":            []byte("# Demo\n\nreadme body"),
			"docs/guides/intro.md": []byte("# Intro\n\nguide body here"),
			"main.go":              []byte("package main\n\nfunc main() {}\n"),
		},
	}
}

type seedFixture struct {
	gdb     *gorm.DB
	svc     SeedService
	origins repos.OriginRepo
	revs    repos.RevisionRepo
	chunks  repos.ChunkRepo
	edges   repos.EdgeRepo
	tree    repos.TreeRepo
}

func newSeedFixture(t *testing.T) *seedFixture {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)

	dict := repos.NewSysDictRepo(gdb, log)
	blobs := repos.NewBlobRepo(gdb, log)
	origins := repos.NewOriginRepo(gdb, log)
	revs := repos.NewRevisionRepo(gdb, log, origins)
	chunks := repos.NewChunkRepo(gdb, log)
	edges := repos.NewEdgeRepo(gdb, log)
	tree := repos.NewTreeRepo(gdb, log)

	svc := NewSeedService(gdb, log, dict, blobs, origins, revs, chunks, edges, tree)
	return &seedFixture{gdb: gdb, svc: svc, origins: origins, revs: revs, chunks: chunks, edges: edges, tree: tree}
}

func TestSeedTreeEndToEnd(t *testing.T) {
	f := newSeedFixture(t)
	ctx := context.Background()

	result, err := f.svc.SeedTree(ctx, SeedTreeInput{Source: newFakeSource(), SourceSystem: "GitHub"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if result.FilesSeeded != 3 {
		t.Fatalf("expected 3 files seeded, got %d", result.FilesSeeded)
	}

	root, err := f.origins.GetByID(ctx, nil, result.RootOriginID)
	if err != nil {
		t.Fatalf("load root origin: %v", err)
	}
	if !urnutil.Valid(root.URN) || !strings.HasPrefix(root.URN, "urn:rhizome:repository:") {
		t.Fatalf("root URN malformed: %s", root.URN)
	}

	// Every seeded file hangs off the root by a Contains edge.
	edges, err := f.edges.Neighbors(ctx, nil, root.ID, []string{types.PredicateContains}, 1)
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(edges) != 3 {
		t.Fatalf("expected 3 Contains edges, got %d", len(edges))
	}

	// The projection mirrors the directory layout.
	structure, err := f.tree.GetStructure(ctx, nil, result.RootTreeID)
	if err != nil {
		t.Fatalf("structure: %v", err)
	}
	names := map[string]*types.TreeNode{}
	var walk func(n *types.TreeNode)
	walk = func(n *types.TreeNode) {
		names[n.Name] = n
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(structure)
	for _, want := range []string{"demo-repo", "docs", "guides", "README.md", "intro.md", "main.go"} {
		if names[want] == nil {
			t.Fatalf("tree is missing node %q", want)
		}
	}
	if intro := names["intro.md"]; intro.ParentID == nil || *intro.ParentID != names["guides"].ID {
		t.Fatalf("intro.md not parented under guides")
	}

	// Each file origin got a revision and its pointer moved.
	for _, e := range edges {
		fileOrigin, err := f.origins.GetByID(ctx, nil, e.TargetID)
		if err != nil {
			t.Fatalf("load file origin: %v", err)
		}
		if fileOrigin.CurrRevID == nil {
			t.Fatalf("file origin %s has no current revision", fileOrigin.URN)
		}
		rev, err := f.revs.GetByID(ctx, nil, *fileOrigin.CurrRevID)
		if err != nil {
			t.Fatalf("load revision: %v", err)
		}
		if rev.SummaryHash == nil {
			t.Fatalf("revision %d has no blob reference", rev.ID)
		}
		n, err := f.chunks.CountByRevisionID(ctx, nil, rev.ID)
		if err != nil {
			t.Fatalf("count chunks: %v", err)
		}
		if n < 1 {
			t.Fatalf("text file revision %d has no chunks", rev.ID)
		}
	}
}

func TestSeedTreeHonorsChunkingConfig(t *testing.T) {
	f := newSeedFixture(t)
	ctx := context.Background()

	src := newFakeSource()
	src.files["README.md"] = []byte(strings.Repeat("a", 300))
	for i := range src.entries {
		if src.entries[i].Path == "README.md" {
			src.entries[i].Size = 300
		}
	}

	_, err := f.svc.SeedTree(ctx, SeedTreeInput{
		Source:       src,
		SourceSystem: "GitHub",
		Chunking:     ingestion.ChunkingConfig{MaxSize: 100, OverlapRatio: 0},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// README splits into 3 windows under the tuned config; the two short
	// files stay single-chunk.
	var total int64
	if err := f.gdb.Model(&types.ChunkNode{}).Count(&total).Error; err != nil {
		t.Fatalf("count chunks: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected 5 chunk rows under tuned config, got %d", total)
	}
}

func TestSeedTreeChunksJSONFiles(t *testing.T) {
	f := newSeedFixture(t)
	ctx := context.Background()

	src := newFakeSource()
	src.entries = append(src.entries, SourceEntry{Path: "config.json", Size: 16})
	src.files["config.json"] = []byte(`{"debug":false}`)

	result, err := f.svc.SeedTree(ctx, SeedTreeInput{Source: src, SourceSystem: "GitHub"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if result.FilesSeeded != 4 {
		t.Fatalf("expected 4 files seeded, got %d", result.FilesSeeded)
	}

	edges, err := f.edges.Neighbors(ctx, nil, result.RootOriginID, []string{types.PredicateContains}, 1)
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	found := false
	for _, e := range edges {
		fileOrigin, err := f.origins.GetByID(ctx, nil, e.TargetID)
		if err != nil {
			t.Fatalf("load file origin: %v", err)
		}
		if !strings.Contains(string(fileOrigin.Props), "config.json") {
			continue
		}
		found = true
		if fileOrigin.CurrRevID == nil {
			t.Fatalf("json file origin has no current revision")
		}
		n, err := f.chunks.CountByRevisionID(ctx, nil, *fileOrigin.CurrRevID)
		if err != nil {
			t.Fatalf("count chunks: %v", err)
		}
		if n < 1 {
			t.Fatalf("json file revision must get seed-time chunks like its yaml siblings")
		}
	}
	if !found {
		t.Fatalf("config.json origin not linked under the root")
	}
}

func TestSeedTreeSkipsOversizedFiles(t *testing.T) {
	f := newSeedFixture(t)
	ctx := context.Background()

	src := newFakeSource()
	src.entries = append(src.entries, SourceEntry{Path: "huge.bin", Size: 2 << 20})

	result, err := f.svc.SeedTree(ctx, SeedTreeInput{Source: src, SourceSystem: "GitHub"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if result.FilesSeeded != 3 {
		t.Fatalf("oversized file must be skipped, got %d seeded", result.FilesSeeded)
	}
}

func TestSeedTreeRollsBackOnReadFailure(t *testing.T) {
	f := newSeedFixture(t)
	ctx := context.Background()

	src := newFakeSource()
	src.readErr = fmt.Errorf("source unavailable")

	if _, err := f.svc.SeedTree(ctx, SeedTreeInput{Source: src, SourceSystem: "GitHub"}); err == nil {
		t.Fatalf("expected seed failure")
	}

	// One transaction per seeded tree: nothing from the failed pass may
	// remain, including the root origin and the projection.
	var origins, nodes int64
	if err := f.gdb.Model(&types.OriginData{}).Count(&origins).Error; err != nil {
		t.Fatalf("count origins: %v", err)
	}
	if err := f.gdb.Model(&types.TreeNode{}).Count(&nodes).Error; err != nil {
		t.Fatalf("count tree nodes: %v", err)
	}
	if origins != 0 || nodes != 0 {
		t.Fatalf("rollback leaked rows: %d origins, %d tree nodes", origins, nodes)
	}
}
