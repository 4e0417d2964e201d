// Package index implements the Discovery/Indexer component (§4.2): a
// content-hash-driven refresh pipeline that walks configured roots,
// parses skill documents, decides staleness, and drives the Embedder
// and Catalog Store.
package index

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/irl-llc/impressionism/internal/skill"
)

// Root is one configured discovery root tagged with the source bucket
// it contributes.
type Root struct {
	Path   string
	Source skill.Bucket
}

// DefaultPatterns matches files literally named SKILL.md at any depth.
var DefaultPatterns = []string{"**/SKILL.md"}

// DefaultIgnore excludes common noise directories.
var DefaultIgnore = []string{
	"**/.git/**", "**/node_modules/**", "**/vendor/**",
	"**/.venv/**", "**/__pycache__/**", "**/dist/**", "**/build/**",
}

// discovered is one file found under a root, not yet parsed.
type discovered struct {
	path   string // absolute path
	source skill.Bucket
}

// walkRoot walks root.Path applying patterns/ignore, relative to
// root.Path. It reports the files found and, separately, whether the
// root itself could not be read at all (a warning, not a fatal error).
func walkRoot(root Root, patterns, ignore []string) ([]discovered, bool, error) {
	base, err := expandHome(root.Path)
	if err != nil {
		return nil, true, err
	}

	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		return nil, true, err
	}

	var found []discovered
	walkErr := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree entry: skip it, keep walking
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(base, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		for _, ig := range ignore {
			if ok, _ := doublestar.Match(ig, rel); ok {
				return nil
			}
		}
		matched := false
		for _, pat := range patterns {
			if ok, _ := doublestar.Match(pat, rel); ok {
				matched = true
				break
			}
		}
		if !matched {
			return nil
		}
		found = append(found, discovered{path: p, source: root.Source})
		return nil
	})

	return found, walkErr != nil, nil
}

func expandHome(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if p == "~" {
			return home, nil
		}
		return filepath.Join(home, p[2:]), nil
	}
	return p, nil
}
