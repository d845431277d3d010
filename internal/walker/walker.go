// Package walker provides the shared directory traversal used by every
// search tool. It yields entries lazily over a channel so consumers can
// stop early, skips hidden entries, honors layered .gitignore files, and
// never follows symlinked directories.
package walker

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"fskit/internal/pattern"
)

// DefaultMaxDepth bounds traversal when the caller sets no limit.
const DefaultMaxDepth = 20

// Entry is one filesystem object produced by Walk. The root itself is
// never yielded.
type Entry struct {
	// Path is the absolute path of the entry.
	Path string
	// RelPath is the path relative to the walk root, with forward slashes.
	RelPath string
	// Name is the base name.
	Name string
	// Depth is 1 for direct children of the root.
	Depth     int
	IsDir     bool
	IsSymlink bool
	// Size is the file size in bytes; zero for directories.
	Size int64
}

// Options configures a walk.
type Options struct {
	// MaxDepth limits traversal depth; 0 means DefaultMaxDepth.
	// Directories at the limit are yielded but not descended into.
	MaxDepth int
	// RespectIgnore honors .gitignore files found along the walk.
	RespectIgnore bool
	// IncludeHidden yields dot-prefixed entries instead of skipping them.
	IncludeHidden bool
	// Excludes prunes matching entries; matching directories are not
	// descended into.
	Excludes *pattern.ExcludeSet
}

type ignoreLayer struct {
	base string // absolute directory the .gitignore lives in
	gi   *ignore.GitIgnore
}

type walkState struct {
	ctx     context.Context
	root    string
	opts    Options
	out     chan<- Entry
	visited map[string]struct{}
	ignores []ignoreLayer
}

// Walk traverses root and sends entries on the returned channel in
// depth-first order with siblings sorted by name. The channel closes when
// the walk finishes or ctx is cancelled. Unreadable directories are
// skipped silently.
func Walk(ctx context.Context, root string, opts Options) <-chan Entry {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	out := make(chan Entry)
	go func() {
		defer close(out)
		s := &walkState{
			ctx:     ctx,
			root:    root,
			opts:    opts,
			out:     out,
			visited: make(map[string]struct{}),
		}
		if canonical, err := filepath.EvalSymlinks(root); err == nil {
			s.visited[canonical] = struct{}{}
		}
		s.pushIgnore(root)
		s.walkDir(root, 1)
	}()
	return out
}

func (s *walkState) walkDir(dir string, depth int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, de := range entries {
		if s.ctx.Err() != nil {
			return
		}
		name := de.Name()
		if !s.opts.IncludeHidden && strings.HasPrefix(name, ".") {
			continue
		}

		path := filepath.Join(dir, name)
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)

		isSymlink := de.Type()&fs.ModeSymlink != 0
		isDir := de.IsDir()
		if isSymlink {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				isDir = true
			}
		}

		if s.opts.Excludes.Match(rel, name) {
			continue
		}
		if s.opts.RespectIgnore && s.ignored(path, isDir) {
			continue
		}

		entry := Entry{
			Path:      path,
			RelPath:   rel,
			Name:      name,
			Depth:     depth,
			IsDir:     isDir,
			IsSymlink: isSymlink,
		}
		if !isDir {
			if info, err := de.Info(); err == nil {
				entry.Size = info.Size()
			}
		}

		select {
		case s.out <- entry:
		case <-s.ctx.Done():
			return
		}

		if isDir && !isSymlink && depth < s.opts.MaxDepth {
			s.descend(path, depth+1)
		}
	}
}

// descend recurses into dir unless its canonical path was already seen on
// this branch. The visited set guards against directory cycles created by
// bind mounts or hard-linked trees.
func (s *walkState) descend(dir string, depth int) {
	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		canonical = dir
	}
	if _, seen := s.visited[canonical]; seen {
		return
	}
	s.visited[canonical] = struct{}{}
	defer delete(s.visited, canonical)

	popTo := len(s.ignores)
	if s.opts.RespectIgnore {
		s.pushIgnore(dir)
	}
	s.walkDir(dir, depth)
	s.ignores = s.ignores[:popTo]
}

func (s *walkState) pushIgnore(dir string) {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore"))
	if err != nil || gi == nil {
		return
	}
	s.ignores = append(s.ignores, ignoreLayer{base: dir, gi: gi})
}

func (s *walkState) ignored(path string, isDir bool) bool {
	for _, layer := range s.ignores {
		rel, err := filepath.Rel(layer.base, path)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if isDir {
			rel += "/"
		}
		if layer.gi.MatchesPath(rel) {
			return true
		}
	}
	return false
}
