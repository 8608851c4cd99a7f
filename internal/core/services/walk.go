package services

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIncludePatterns matches every ingestible file type.
var DefaultIncludePatterns = []string{
	"**/*.md",
	"**/*.markdown",
	"**/*.pdf",
	"**/*.html",
	"**/*.htm",
}

// walker collects files under a directory by glob patterns relative to it.
type walker struct {
	includes []string
	excludes []string
}

func newWalker(includes, excludes []string) *walker {
	if len(includes) == 0 {
		includes = DefaultIncludePatterns
	}
	return &walker{includes: includes, excludes: excludes}
}

// walk returns matching files under root in lexical order.
func (w *walker) walk(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && w.excluded(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.included(rel) && !w.excluded(rel) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// matches reports whether path passes the include and exclude patterns.
// Used for single files reported by the watcher.
func (w *walker) matches(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	return w.included(rel) && !w.excluded(rel)
}

func (w *walker) included(path string) bool {
	return matchAny(w.includes, path)
}

func (w *walker) excluded(path string) bool {
	return matchAny(w.excludes, path)
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, path); err == nil && matched {
			return true
		}
	}
	return false
}
