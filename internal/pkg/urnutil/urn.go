package urnutil

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// URN format: urn:rhizome:<dtype>:<uuid4>. The URN is permanent identity; it
// never changes when content or location does.
const Prefix = "urn:rhizome"

var (
	nonSlug   = regexp.MustCompile(`[^\w\s-]`)
	collapser = regexp.MustCompile(`[-\s]+`)
	urnShape  = regexp.MustCompile(`^urn:rhizome:[a-z0-9_-]+:[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// New mints a URN for the given data type with a fresh uuid4.
func New(dtype string) string {
	return fmt.Sprintf("%s:%s:%s", Prefix, strings.ToLower(strings.TrimSpace(dtype)), uuid.New().String())
}

// Valid reports whether s has the canonical URN shape.
func Valid(s string) bool {
	return urnShape.MatchString(s)
}

// Slugify converts a display name into a URL-safe slug. The extension is
// dropped so "README.md" and "README.txt" share a slug stem.
func Slugify(name string) string {
	stem := strings.TrimSuffix(name, path.Ext(name))
	slug := nonSlug.ReplaceAllString(strings.ToLower(stem), "")
	slug = strings.Trim(collapser.ReplaceAllString(slug, "-"), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}

// SplitPath splits a slash path into parent directory and base name.
func SplitPath(p string) (dir, base string) {
	if !strings.Contains(p, "/") {
		return "", p
	}
	dir, base = path.Split(p)
	return strings.TrimSuffix(dir, "/"), base
}
