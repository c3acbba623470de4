package localsource

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rhizomelab/rhizome-backend/internal/services"
)

// Client exposes a local directory tree through the seeding SourceClient
// port. Useful for development and for seeding exported snapshots without
// a remote crawler.
type Client struct {
	root string
	name string
}

func New(root string) *Client {
	return &Client{root: filepath.Clean(root), name: filepath.Base(filepath.Clean(root))}
}

func (c *Client) Info(ctx context.Context) (*services.SourceInfo, error) {
	if _, err := os.Stat(c.root); err != nil {
		return nil, err
	}
	return &services.SourceInfo{Name: c.name, Description: "local directory " + c.root}, nil
}

func (c *Client) ListEntries(ctx context.Context) ([]services.SourceEntry, error) {
	var entries []services.SourceEntry
	err := filepath.WalkDir(c.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(c.root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		// Hidden files and VCS metadata are not content.
		base := filepath.Base(rel)
		if strings.HasPrefix(base, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			entries = append(entries, services.SourceEntry{Path: rel, Dir: true})
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, services.SourceEntry{Path: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(c.root, filepath.FromSlash(path)))
}
