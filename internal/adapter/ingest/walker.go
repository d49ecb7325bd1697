package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Walker expands glob patterns into source file paths, filtered by the
// configured include/exclude patterns.
type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{includes: includes, excludes: excludes}
}

// Expand resolves each argument to files. A pattern containing glob
// metacharacters is matched against the filesystem; a literal path is kept
// as-is so a typo surfaces as an ingestion error instead of vanishing.
// Results are deduplicated and sorted for a stable add order.
func (w *Walker) Expand(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string

	for _, arg := range args {
		matches, err := w.expandOne(arg)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}

	sort.Strings(paths)
	return paths, nil
}

func (w *Walker) expandOne(arg string) ([]string, error) {
	if !containsGlob(arg) {
		return []string{arg}, nil
	}

	matches, err := doublestar.FilepathGlob(arg)
	if err != nil {
		return nil, fmt.Errorf("bad glob pattern %q: %w", arg, err)
	}

	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		rel := filepath.ToSlash(m)
		if w.matchesAny(w.excludes, rel) {
			continue
		}
		if w.matchesAny(w.includes, rel) || w.matchesAny(w.includes, filepath.Base(m)) {
			files = append(files, m)
		}
	}
	return files, nil
}

func (w *Walker) matchesAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func containsGlob(s string) bool {
	for _, r := range s {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
