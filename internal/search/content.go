package search

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"regexp"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"fskit/internal/access"
	"fskit/internal/errors"
	"fskit/internal/pattern"
	"fskit/internal/walker"
)

const (
	// binaryProbeSize is how much of a file's head is checked for NUL
	// bytes before scanning.
	binaryProbeSize = 8192
	// maxLineBytes bounds a single scanned line.
	maxLineBytes = 1 << 20
)

// ContentQuery describes a text search over file contents.
type ContentQuery struct {
	// Path is the directory to search under.
	Path string
	// Text is the literal string or regular expression to find.
	Text string
	// IsRegex interprets Text as a regular expression instead of a
	// literal.
	IsRegex bool
	// Pattern is the glob selecting which files are scanned; empty means
	// every file.
	Pattern string
	// Excludes prunes matching files and directories.
	Excludes []string
	// MinBytes and MaxBytes bound the file sizes considered; 0 means
	// unbounded. Out-of-range files are excluded before any read.
	MinBytes int64
	MaxBytes int64
	// MaxDepth limits traversal; 0 uses the service default.
	MaxDepth int
}

// ContentMatch is one matching line in one file. Line and Column are
// 1-based.
type ContentMatch struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Preview string `json:"preview"`
}

// SkippedFile records a file that could not be searched.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ContentResult holds matches and per-file skip diagnostics.
type ContentResult struct {
	Matches []ContentMatch `json:"matches"`
	Skipped []SkippedFile  `json:"skipped,omitempty"`
}

// ContentSearch scans files under the query path for the query text.
// Matching is always case-insensitive. Binary and unreadable files are
// reported as skipped instead of failing the search.
func (s *Service) ContentSearch(ctx context.Context, q ContentQuery) (*ContentResult, error) {
	resolved, err := s.guard.Resolve(q.Path, access.Read)
	if err != nil {
		return nil, err
	}
	if q.Text == "" {
		return nil, errors.NewInvalidParameterError("query", "must not be empty")
	}

	expr := q.Text
	if !q.IsRegex {
		expr = regexp.QuoteMeta(expr)
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, errors.Wrap(errors.InvalidRegex, "invalid regex: "+q.Text, err)
	}

	var fileMatcher *pattern.Matcher
	if q.Pattern != "" {
		fileMatcher, err = pattern.Compile(q.Pattern)
		if err != nil {
			return nil, err
		}
	}
	excludes, err := pattern.CompileExcludes(q.Excludes)
	if err != nil {
		return nil, err
	}

	entries := walker.Walk(ctx, resolved.Path, walker.Options{
		MaxDepth:      s.depthOr(q.MaxDepth),
		RespectIgnore: true,
		Excludes:      excludes,
	})

	result := &ContentResult{Matches: []ContentMatch{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for entry := range entries {
		if entry.IsDir {
			continue
		}
		if !sizeInRange(entry.Size, q.MinBytes, q.MaxBytes) {
			continue
		}
		if fileMatcher != nil && !fileMatcher.Match(entry.RelPath, entry.Name) {
			continue
		}
		entry := entry
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			matches, skip := scanFile(entry.Path, re)
			mu.Lock()
			defer mu.Unlock()
			result.Matches = append(result.Matches, matches...)
			if skip != nil {
				result.Skipped = append(result.Skipped, *skip)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Matches, func(i, j int) bool {
		a, b := result.Matches[i], result.Matches[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Line < b.Line
	})
	sort.Slice(result.Skipped, func(i, j int) bool {
		return result.Skipped[i].Path < result.Skipped[j].Path
	})
	return result, nil
}

// scanFile searches one file line by line, returning its matches and an
// optional skip diagnostic. The file is read incrementally, never loaded
// whole; a NUL byte in the head marks it as binary.
func scanFile(path string, re *regexp.Regexp) ([]ContentMatch, *SkippedFile) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SkippedFile{Path: path, Reason: "unreadable: " + err.Error()}
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 64*1024)
	head, err := br.Peek(binaryProbeSize)
	if err != nil && len(head) == 0 {
		return nil, nil
	}
	if bytes.IndexByte(head, 0) != -1 {
		return nil, &SkippedFile{Path: path, Reason: "binary file"}
	}

	var matches []ContentMatch
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		loc := re.FindStringIndex(line)
		if loc == nil {
			continue
		}
		matches = append(matches, ContentMatch{
			Path:    path,
			Line:    lineNo,
			Column:  loc[0] + 1,
			Preview: extractSnippet(line, loc[0]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, &SkippedFile{Path: path, Reason: "unreadable: " + err.Error()}
	}
	return matches, nil
}
