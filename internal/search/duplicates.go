package search

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"fskit/internal/access"
	"fskit/internal/pattern"
	"fskit/internal/walker"
)

const (
	headSampleSize = 4096
	hashChunkSize  = 8192
)

// DuplicatesQuery describes a duplicate file scan.
type DuplicatesQuery struct {
	Path string
	// Pattern restricts which files are considered; empty means every
	// file.
	Pattern  string
	Excludes []string
	// MinBytes and MaxBytes bound the file sizes considered; 0 means
	// unbounded.
	MinBytes int64
	MaxBytes int64
	MaxDepth int
}

// DuplicateGroup is a set of files with identical content.
type DuplicateGroup struct {
	// Digest is the hex blake3 digest of the shared content.
	Digest string `json:"digest"`
	// Size is the file size in bytes.
	Size int64 `json:"size"`
	// Paths lists the group members in traversal order.
	Paths []string `json:"paths"`
}

type candidateFile struct {
	path  string
	size  int64
	order int
}

// FindDuplicates locates files with byte-identical content under the
// query path. Files are narrowed in three stages so full hashing is only
// paid for likely duplicates: size, then a digest of the first 4KB, then
// a streaming digest of the whole content. Groups appear in first-seen
// traversal order.
func (s *Service) FindDuplicates(ctx context.Context, q DuplicatesQuery) ([]DuplicateGroup, error) {
	resolved, err := s.guard.Resolve(q.Path, access.Read)
	if err != nil {
		return nil, err
	}
	excludes, err := pattern.CompileExcludes(q.Excludes)
	if err != nil {
		return nil, err
	}
	var matcher *pattern.Matcher
	if q.Pattern != "" {
		matcher, err = pattern.Compile(q.Pattern)
		if err != nil {
			return nil, err
		}
	}

	var files []candidateFile
	entries := walker.Walk(ctx, resolved.Path, walker.Options{
		MaxDepth:      s.depthOr(q.MaxDepth),
		RespectIgnore: true,
		Excludes:      excludes,
	})
	for entry := range entries {
		if entry.IsDir || entry.IsSymlink {
			continue
		}
		if !sizeInRange(entry.Size, q.MinBytes, q.MaxBytes) {
			continue
		}
		if matcher != nil && !matcher.Match(entry.RelPath, entry.Name) {
			continue
		}
		files = append(files, candidateFile{path: entry.Path, size: entry.Size, order: len(files)})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bySize := make(map[int64][]candidateFile)
	for _, f := range files {
		bySize[f.size] = append(bySize[f.size], f)
	}
	var groups [][]candidateFile
	for _, group := range bySize {
		if len(group) >= 2 {
			groups = append(groups, group)
		}
	}

	groups, _, err = s.regroup(ctx, groups, headDigest)
	if err != nil {
		return nil, err
	}
	groups, digests, err := s.regroup(ctx, groups, fullDigest)
	if err != nil {
		return nil, err
	}

	type orderedGroup struct {
		first int
		dg    DuplicateGroup
	}
	ordered := make([]orderedGroup, 0, len(groups))
	for i, group := range groups {
		sort.Slice(group, func(a, b int) bool { return group[a].order < group[b].order })
		paths := make([]string, len(group))
		for j, m := range group {
			paths[j] = m.path
		}
		ordered = append(ordered, orderedGroup{
			first: group[0].order,
			dg: DuplicateGroup{
				Digest: digests[i],
				Size:   group[0].size,
				Paths:  paths,
			},
		})
	}
	sort.Slice(ordered, func(a, b int) bool { return ordered[a].first < ordered[b].first })

	out := make([]DuplicateGroup, len(ordered))
	for i, og := range ordered {
		out[i] = og.dg
	}
	return out, nil
}

// regroup hashes every member of every group concurrently and partitions
// by (size, digest), keeping only partitions of two or more members.
// Unreadable files drop out of contention silently.
func (s *Service) regroup(ctx context.Context, groups [][]candidateFile, digest func(string) (string, error)) ([][]candidateFile, []string, error) {
	type partition struct {
		digest  string
		members []candidateFile
	}

	var mu sync.Mutex
	parts := make(map[string]*partition)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, group := range groups {
		for _, f := range group {
			f := f
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				d, err := digest(f.path)
				if err != nil {
					return nil
				}
				key := fmt.Sprintf("%d/%s", f.size, d)
				mu.Lock()
				p, ok := parts[key]
				if !ok {
					p = &partition{digest: d}
					parts[key] = p
				}
				p.members = append(p.members, f)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var outGroups [][]candidateFile
	var outDigests []string
	for _, p := range parts {
		if len(p.members) >= 2 {
			outGroups = append(outGroups, p.members)
			outDigests = append(outDigests, p.digest)
		}
	}
	return outGroups, outDigests, nil
}

// headDigest hashes the first 4KB of a file.
func headDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, headSampleSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	sum := blake3.Sum256(buf[:n])
	return hex.EncodeToString(sum[:]), nil
}

// fullDigest streams the whole file through blake3 in 8KB chunks.
func fullDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
