package search

import (
	"context"
	"os"
	"path/filepath"

	"fskit/internal/access"
	"fskit/internal/pattern"
)

// Junk files that do not make a directory non-empty.
var junkFiles = map[string]struct{}{
	".DS_Store": {},
	"Thumbs.db": {},
}

// EmptyDirsQuery describes an empty-directory scan.
type EmptyDirsQuery struct {
	Path     string
	Excludes []string
}

// FindEmptyDirs returns directories under the query path that contain no
// files, directly or transitively. A directory whose subtree holds only
// other empty directories and OS junk files counts as empty. Results are
// in depth-first order; the query root itself is never reported.
func (s *Service) FindEmptyDirs(ctx context.Context, q EmptyDirsQuery) ([]string, error) {
	resolved, err := s.guard.Resolve(q.Path, access.Read)
	if err != nil {
		return nil, err
	}
	excludes, err := pattern.CompileExcludes(q.Excludes)
	if err != nil {
		return nil, err
	}

	empty := []string{}
	_, err = scanEmpty(ctx, resolved.Path, resolved.Path, excludes, &empty)
	if err != nil {
		return nil, err
	}
	return empty, nil
}

// scanEmpty reports whether dir's subtree contains any real file and
// collects empty directories along the way.
func scanEmpty(ctx context.Context, root, dir string, excludes *pattern.ExcludeSet, out *[]string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return true, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable directories are treated as occupied so they are
		// never suggested for cleanup.
		return true, nil
	}

	hasFile := false
	for _, e := range entries {
		name := e.Name()
		path := filepath.Join(dir, name)
		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && excludes.Match(filepath.ToSlash(rel), name) {
			continue
		}

		if e.IsDir() {
			childHasFile, err := scanEmpty(ctx, root, path, excludes, out)
			if err != nil {
				return true, err
			}
			if childHasFile {
				hasFile = true
			} else {
				*out = append(*out, path)
			}
			continue
		}

		if _, junk := junkFiles[name]; !junk {
			hasFile = true
		}
	}
	return hasFile, nil
}
