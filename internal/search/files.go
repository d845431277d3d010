package search

import (
	"context"
	"path/filepath"
	"strings"

	"fskit/internal/access"
	"fskit/internal/pattern"
	"fskit/internal/walker"
)

// FindFilesQuery describes a file name search.
type FindFilesQuery struct {
	// Path is the directory to search under.
	Path string
	// Pattern is the glob or substring pattern to match.
	Pattern string
	// FileExtensions restricts results to the given extensions; entries
	// may omit the leading dot. Empty means no restriction.
	FileExtensions []string
	// Excludes prunes matching files and directories.
	Excludes []string
	// MinBytes and MaxBytes bound the file sizes considered; 0 means
	// unbounded.
	MinBytes int64
	MaxBytes int64
	// MaxDepth limits traversal; 0 uses the service default.
	MaxDepth int
}

// FindFiles returns the absolute paths of files under the query path
// whose name or relative path matches the pattern, in traversal order.
// Hidden entries are skipped and .gitignore rules are honored. Size
// bounds exclude files before any further work.
func (s *Service) FindFiles(ctx context.Context, q FindFilesQuery) ([]string, error) {
	resolved, err := s.guard.Resolve(q.Path, access.Read)
	if err != nil {
		return nil, err
	}

	matcher, err := pattern.Compile(q.Pattern)
	if err != nil {
		return nil, err
	}
	excludes, err := pattern.CompileExcludes(q.Excludes)
	if err != nil {
		return nil, err
	}
	exts := fileExtensionSet(q.FileExtensions)

	results := []string{}
	entries := walker.Walk(ctx, resolved.Path, walker.Options{
		MaxDepth:      s.depthOr(q.MaxDepth),
		RespectIgnore: true,
		Excludes:      excludes,
	})
	for entry := range entries {
		if entry.IsDir {
			continue
		}
		if !sizeInRange(entry.Size, q.MinBytes, q.MaxBytes) {
			continue
		}
		if exts != nil {
			if _, ok := exts[strings.ToLower(filepath.Ext(entry.Name))]; !ok {
				continue
			}
		}
		if matcher.Match(entry.RelPath, entry.Name) {
			results = append(results, entry.Path)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// sizeInRange reports whether a file size passes the optional bounds.
// A zero bound is unset.
func sizeInRange(size, min, max int64) bool {
	if min > 0 && size < min {
		return false
	}
	if max > 0 && size > max {
		return false
	}
	return true
}

// fileExtensionSet normalizes an extension filter into a lookup set, or
// nil when no filter was given.
func fileExtensionSet(requested []string) map[string]struct{} {
	if len(requested) == 0 {
		return nil
	}
	out := map[string]struct{}{}
	for _, ext := range requested {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}
