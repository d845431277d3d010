package search

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"fskit/internal/access"
	"fskit/internal/astsearch"
	"fskit/internal/errors"
	"fskit/internal/grammar"
	"fskit/internal/pattern"
	"fskit/internal/walker"
)

// ASTQuery describes a structural code search.
type ASTQuery struct {
	// Path is the directory to search under.
	Path string
	// Pattern is a source snippet with $WILDCARD slots.
	Pattern string
	// Language selects the grammar (name or alias).
	Language string
	// FileExtensions restricts scanned files; empty means the language's
	// default extensions. Entries may omit the leading dot.
	FileExtensions []string
	// Excludes prunes matching files and directories.
	Excludes []string
	// MaxLines caps the total matched source lines in the result; 0
	// means 200.
	MaxLines int
	MaxDepth int
}

// DefaultASTMaxLines bounds result size when the caller sets no limit.
const DefaultASTMaxLines = 200

// ASTFileMatch groups the matches found in one file.
type ASTFileMatch struct {
	Path    string            `json:"path"`
	Matches []astsearch.Match `json:"matches"`
}

// ASTResult holds per-file matches, skip diagnostics and whether the
// line budget cut the result short.
type ASTResult struct {
	Files     []ASTFileMatch `json:"files"`
	Skipped   []SkippedFile  `json:"skipped,omitempty"`
	Truncated bool           `json:"truncated,omitempty"`
}

// ASTSearch finds structural matches of the pattern in source files under
// the query path. Files are filtered by extension before any parse, parse
// trees come from the fingerprint-checked cache, and a per-file failure
// becomes a diagnostic instead of aborting the search.
func (s *Service) ASTSearch(ctx context.Context, q ASTQuery) (*ASTResult, error) {
	resolved, err := s.guard.Resolve(q.Path, access.Read)
	if err != nil {
		return nil, err
	}

	lang, err := grammar.FromName(q.Language)
	if err != nil {
		return nil, err
	}

	pat, err := astsearch.CompilePattern(ctx, q.Pattern, lang)
	if err != nil {
		return nil, err
	}
	defer pat.Close()

	exts := extensionSet(q.FileExtensions, lang)
	excludes, err := pattern.CompileExcludes(q.Excludes)
	if err != nil {
		return nil, err
	}

	maxLines := q.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultASTMaxLines
	}

	walkCtx, stopWalk := context.WithCancel(ctx)
	defer stopWalk()

	entries := walker.Walk(walkCtx, resolved.Path, walker.Options{
		MaxDepth:      s.depthOr(q.MaxDepth),
		RespectIgnore: true,
		Excludes:      excludes,
	})

	result := &ASTResult{Files: []ASTFileMatch{}}
	var mu sync.Mutex
	usedLines := 0

	g, gctx := errgroup.WithContext(walkCtx)
	g.SetLimit(s.workers)

	for entry := range entries {
		if entry.IsDir {
			continue
		}
		if _, ok := exts[strings.ToLower(filepath.Ext(entry.Name))]; !ok {
			continue
		}
		entry := entry
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			matches, skip := s.searchOne(gctx, pat, entry.Path, lang)
			if skip == nil && len(matches) == 0 {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if skip != nil {
				result.Skipped = append(result.Skipped, *skip)
				return nil
			}
			if result.Truncated {
				return nil
			}

			kept := make([]astsearch.Match, 0, len(matches))
			for _, m := range matches {
				lines := m.EndLine - m.StartLine + 1
				if usedLines+lines > maxLines {
					result.Truncated = true
					break
				}
				usedLines += lines
				kept = append(kept, m)
			}
			if len(kept) > 0 {
				result.Files = append(result.Files, ASTFileMatch{Path: entry.Path, Matches: kept})
			}
			if result.Truncated {
				// No budget left for further files.
				stopWalk()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].Path < result.Files[j].Path })
	sort.Slice(result.Skipped, func(i, j int) bool { return result.Skipped[i].Path < result.Skipped[j].Path })

	hits, misses := s.cache.Stats()
	s.logger.Debug("ast search complete", map[string]interface{}{
		"files":       len(result.Files),
		"cacheHits":   hits,
		"cacheMisses": misses,
	})
	return result, nil
}

func (s *Service) searchOne(ctx context.Context, pat *astsearch.Pattern, path string, lang grammar.Language) ([]astsearch.Match, *SkippedFile) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SkippedFile{Path: path, Reason: "unreadable: " + err.Error()}
	}
	if bytes.IndexByte(data, 0) != -1 {
		return nil, &SkippedFile{Path: path, Reason: "binary file"}
	}

	tree, err := s.cache.Get(ctx, path, data, lang)
	if err != nil {
		if errors.IsCode(err, errors.OperationFailed) {
			return nil, &SkippedFile{Path: path, Reason: "parse failed"}
		}
		return nil, &SkippedFile{Path: path, Reason: err.Error()}
	}
	return pat.FindAll(tree, data), nil
}

// extensionSet normalizes the requested extensions, falling back to the
// language defaults.
func extensionSet(requested []string, lang grammar.Language) map[string]struct{} {
	if set := fileExtensionSet(requested); set != nil {
		return set
	}
	out := map[string]struct{}{}
	for _, ext := range grammar.DefaultExtensions(lang) {
		out[ext] = struct{}{}
	}
	return out
}
