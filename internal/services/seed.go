package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gorm.io/gorm"

	repos "github.com/rhizomelab/rhizome-backend/internal/data/repos/rhizome"
	types "github.com/rhizomelab/rhizome-backend/internal/domain"
	"github.com/rhizomelab/rhizome-backend/internal/ingestion"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/logger"
	"github.com/rhizomelab/rhizome-backend/internal/pkg/urnutil"
)

// maxSeedFileSize skips oversized files during tree seeding.
const maxSeedFileSize = 1 << 20

// SourceInfo describes the tree being seeded.
type SourceInfo struct {
	Name        string
	Owner       string
	Description string
	Language    string
}

// SourceEntry is one path inside the source tree.
type SourceEntry struct {
	Path string
	Dir  bool
	Size int64
}

// SourceClient is the port a concrete crawler implements. The service only
// needs tree metadata, an entry listing, and file contents.
type SourceClient interface {
	Info(ctx context.Context) (*SourceInfo, error)
	ListEntries(ctx context.Context) ([]SourceEntry, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

type SeedTreeInput struct {
	Source SourceClient
	// SourceSystem names the SOURCE dictionary entry, e.g. "GitHub".
	SourceSystem string
	// Chunking tunes the seed-time excerpt chunks; zero values fall back to
	// the splitter defaults.
	Chunking ingestion.ChunkingConfig
}

type SeedResult struct {
	RootOriginID int64
	RootTreeID   int64
	FilesSeeded  int
}

type SeedService interface {
	SeedTree(ctx context.Context, in SeedTreeInput) (*SeedResult, error)
}

type seedService struct {
	db    *gorm.DB
	log   *logger.Logger
	dict  repos.SysDictRepo
	blobs repos.BlobRepo
	orig  repos.OriginRepo
	revs  repos.RevisionRepo
	chnk  repos.ChunkRepo
	edges repos.EdgeRepo
	tree  repos.TreeRepo
}

func NewSeedService(
	db *gorm.DB,
	baseLog *logger.Logger,
	dict repos.SysDictRepo,
	blobs repos.BlobRepo,
	orig repos.OriginRepo,
	revs repos.RevisionRepo,
	chnk repos.ChunkRepo,
	edges repos.EdgeRepo,
	tree repos.TreeRepo,
) SeedService {
	return &seedService{
		db:    db,
		log:   baseLog.With("service", "SeedService"),
		dict:  dict,
		blobs: blobs,
		orig:  orig,
		revs:  revs,
		chnk:  chnk,
		edges: edges,
		tree:  tree,
	}
}

// seedDicts carries the dictionary ids the seeding pass needs.
type seedDicts struct {
	source   *types.SysDict
	dtypeRep *types.SysDict
	dtypeFil *types.SysDict
	dtypeDir *types.SysDict
	contains *types.SysDict
	tagCode  *types.SysDict
	tagMd    *types.SysDict
	tagCfg   *types.SysDict
	editor   *types.SysDict
}

// SeedTree ingests a whole source tree: dictionary bootstrap, root identity,
// folder projection, then one origin/revision/blob/chunk set per file plus a
// Contains edge back to the root. Everything commits in one transaction.
func (s *seedService) SeedTree(ctx context.Context, in SeedTreeInput) (*SeedResult, error) {
	info, err := in.Source.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("source info: %w", err)
	}
	entries, err := in.Source.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	var result *SeedResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dicts, err := s.bootstrapDicts(ctx, tx, in.SourceSystem)
		if err != nil {
			return err
		}

		rootOrigin, rootNode, err := s.createRoot(ctx, tx, info, dicts)
		if err != nil {
			return err
		}

		dirMap, err := s.createDirectories(ctx, tx, entries, rootNode)
		if err != nil {
			return err
		}

		count := 0
		for _, entry := range entries {
			if entry.Dir {
				continue
			}
			seeded, err := s.seedFile(ctx, tx, in, entry, dirMap, rootNode, rootOrigin, dicts)
			if err != nil {
				return err
			}
			if seeded {
				count++
			}
		}

		result = &SeedResult{
			RootOriginID: rootOrigin.ID,
			RootTreeID:   rootNode.ID,
			FilesSeeded:  count,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("source tree seeded",
		"source", in.SourceSystem,
		"root_origin_id", result.RootOriginID,
		"files", result.FilesSeeded)
	return result, nil
}

func (s *seedService) bootstrapDicts(ctx context.Context, tx *gorm.DB, sourceSystem string) (*seedDicts, error) {
	d := &seedDicts{}
	var err error

	for _, step := range []struct {
		dst      **types.SysDict
		category string
		val      string
	}{
		{&d.source, types.CategorySource, sourceSystem},
		{&d.dtypeRep, types.CategoryDataType, "Repository"},
		{&d.dtypeFil, types.CategoryDataType, "File"},
		{&d.dtypeDir, types.CategoryDataType, "Directory"},
		{&d.contains, types.CategoryPredicate, types.PredicateContains},
		{&d.tagCode, types.CategoryTag, "Code"},
		{&d.tagMd, types.CategoryTag, "Markdown"},
		{&d.tagCfg, types.CategoryTag, "Config"},
		{&d.editor, types.CategoryEditor, "System"},
	} {
		*step.dst, err = s.dict.GetOrCreate(ctx, tx, step.category, step.val)
		if err != nil {
			return nil, fmt.Errorf("bootstrap dict %s/%s: %w", step.category, step.val, err)
		}
	}
	return d, nil
}

func (s *seedService) createRoot(ctx context.Context, tx *gorm.DB, info *SourceInfo, dicts *seedDicts) (*types.OriginData, *types.TreeNode, error) {
	props, err := json.Marshal(map[string]interface{}{
		"name":        info.Name,
		"owner":       info.Owner,
		"description": info.Description,
		"language":    info.Language,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal root props: %w", err)
	}

	rootOrigin := &types.OriginData{
		URN:      urnutil.New("repository"),
		SrcSysID: dicts.source.ID,
		DtypeID:  dicts.dtypeRep.ID,
		Props:    props,
	}
	if err := s.orig.Create(ctx, tx, rootOrigin); err != nil {
		return nil, nil, fmt.Errorf("create root origin: %w", err)
	}

	rootNode := &types.TreeNode{
		DataID:   &rootOrigin.ID,
		ViewType: types.ViewTypeFolder,
		Name:     info.Name,
		Slug:     urnutil.Slugify(info.Name),
	}
	if err := s.tree.Create(ctx, tx, rootNode); err != nil {
		return nil, nil, fmt.Errorf("create root tree node: %w", err)
	}
	return rootOrigin, rootNode, nil
}

// createDirectories projects directories into tree nodes, shallow paths
// first so every parent exists before its children.
func (s *seedService) createDirectories(ctx context.Context, tx *gorm.DB, entries []SourceEntry, root *types.TreeNode) (map[string]*types.TreeNode, error) {
	dirMap := map[string]*types.TreeNode{"": root}

	var dirs []SourceEntry
	for _, e := range entries {
		if e.Dir {
			dirs = append(dirs, e)
		}
	}
	sort.SliceStable(dirs, func(i, j int) bool {
		return strings.Count(dirs[i].Path, "/") < strings.Count(dirs[j].Path, "/")
	})

	for _, d := range dirs {
		parentPath, name := urnutil.SplitPath(d.Path)
		parent, ok := dirMap[parentPath]
		if !ok {
			parent = root
		}
		node := &types.TreeNode{
			ParentID: &parent.ID,
			ViewType: types.ViewTypeFolder,
			Name:     name,
			Slug:     urnutil.Slugify(name),
		}
		if err := s.tree.Create(ctx, tx, node); err != nil {
			return nil, fmt.Errorf("create directory node %q: %w", d.Path, err)
		}
		dirMap[d.Path] = node
	}
	return dirMap, nil
}

func (s *seedService) seedFile(
	ctx context.Context,
	tx *gorm.DB,
	in SeedTreeInput,
	entry SourceEntry,
	dirMap map[string]*types.TreeNode,
	root *types.TreeNode,
	rootOrigin *types.OriginData,
	dicts *seedDicts,
) (bool, error) {
	if entry.Size > maxSeedFileSize {
		s.log.Debug("skipping large file", "path", entry.Path, "size", entry.Size)
		return false, nil
	}
	content, err := in.Source.ReadFile(ctx, entry.Path)
	if err != nil {
		return false, fmt.Errorf("read %q: %w", entry.Path, err)
	}

	parentPath, filename := urnutil.SplitPath(entry.Path)
	parent, ok := dirMap[parentPath]
	if !ok {
		parent = root
	}

	ext := strings.ToLower(filepath.Ext(filename))
	tagIDs := fileTags(ext, dicts)
	contentType := contentTypeFor(ext)

	props, err := json.Marshal(map[string]interface{}{
		"path":      entry.Path,
		"name":      filename,
		"extension": strings.TrimPrefix(ext, "."),
		"size":      entry.Size,
	})
	if err != nil {
		return false, fmt.Errorf("marshal props for %q: %w", entry.Path, err)
	}

	origin := &types.OriginData{
		URN:      urnutil.New("file"),
		SrcSysID: dicts.source.ID,
		DtypeID:  dicts.dtypeFil.ID,
		Props:    props,
	}
	if err := s.orig.Create(ctx, tx, origin); err != nil {
		return false, fmt.Errorf("create origin for %q: %w", entry.Path, err)
	}

	node := &types.TreeNode{
		ParentID: &parent.ID,
		DataID:   &origin.ID,
		ViewType: types.ViewTypeFile,
		Name:     filename,
		Slug:     urnutil.Slugify(filename),
	}
	if err := s.tree.Create(ctx, tx, node); err != nil {
		return false, fmt.Errorf("create tree node for %q: %w", entry.Path, err)
	}

	hash, err := s.blobs.GetOrCreate(ctx, tx, content, contentType)
	if err != nil {
		return false, fmt.Errorf("store blob for %q: %w", entry.Path, err)
	}

	metaDiff, err := json.Marshal(map[string]interface{}{
		"lines_added":   strings.Count(string(content), "\n") + 1,
		"lines_removed": 0,
		"file_size":     entry.Size,
	})
	if err != nil {
		return false, fmt.Errorf("marshal meta for %q: %w", entry.Path, err)
	}

	rev := &types.Revision{
		DataID:      origin.ID,
		Title:       "Initial version of " + filename,
		SummaryHash: &hash,
		Tags:        types.EncodeTagIDs(tagIDs),
		EditorID:    dicts.editor.ID,
		MetaDiff:    metaDiff,
	}
	if err := s.revs.Append(ctx, tx, rev); err != nil {
		return false, fmt.Errorf("append revision for %q: %w", entry.Path, err)
	}

	// Seed-time chunks carry excerpt summaries only; embeddings arrive later
	// through the annotation pipeline.
	if chunkableContent(contentType) {
		chunks := ingestion.Chunk(string(content), in.Chunking)
		rows := make([]*types.ChunkNode, 0, len(chunks))
		for _, c := range chunks {
			rows = append(rows, &types.ChunkNode{
				RevisionID:     rev.ID,
				ChunkHash:      types.HashBytes([]byte(c.Content)),
				ChunkType:      c.ChunkType,
				ContentSummary: excerpt(c.Content, 200),
				Ord:            c.Ord,
			})
		}
		if _, err := s.chnk.Create(ctx, tx, rows); err != nil {
			return false, fmt.Errorf("persist chunks for %q: %w", entry.Path, err)
		}
	}

	if err := s.edges.Link(ctx, tx, rootOrigin.ID, origin.ID, dicts.contains.ID, 1.0); err != nil && !errors.Is(err, types.ErrDuplicateEdge) {
		return false, fmt.Errorf("link root to %q: %w", entry.Path, err)
	}
	return true, nil
}

func fileTags(ext string, dicts *seedDicts) []int64 {
	switch ext {
	case ".go", ".py", ".js", ".ts":
		return []int64{dicts.tagCode.ID}
	case ".md", ".markdown":
		return []int64{dicts.tagMd.ID}
	case ".json", ".yaml", ".yml", ".toml", ".ini", ".cfg":
		return []int64{dicts.tagCfg.ID}
	}
	return nil
}

// chunkableContent reports whether seed-time excerpt chunks make sense for
// the stored content type. JSON reads as text even though its registered
// type sits under application/.
func chunkableContent(contentType string) bool {
	return strings.HasPrefix(contentType, "text/") || contentType == "application/json"
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".md", ".markdown":
		return "text/markdown"
	case ".go":
		return "text/x-go"
	case ".py":
		return "text/x-python"
	case ".json":
		return "application/json"
	default:
		return "text/plain"
	}
}

// excerpt truncates on rune boundaries for a short human-readable summary.
func excerpt(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
