package search

import (
	"context"
	"os"
	"strings"

	"fskit/internal/access"
	"fskit/internal/pattern"
	"fskit/internal/walker"
)

// DefaultTreeDepth is the directory_tree depth when the caller sets none.
const DefaultTreeDepth = 2

// TreeNode is one entry in a compact directory tree. Directory names
// carry a trailing slash and symlinks a trailing @, so the JSON stays
// small without extra fields.
type TreeNode struct {
	Name     string      `json:"n"`
	Children []*TreeNode `json:"c,omitempty"`
}

// TreeQuery describes a directory tree request.
type TreeQuery struct {
	Path     string
	MaxDepth int
	Excludes []string
}

// TreeResult holds the top-level nodes and whether the depth limit cut
// the tree short.
type TreeResult struct {
	Nodes     []*TreeNode
	Truncated bool
}

// Tree builds a compact tree of the directory at the query path. The
// root itself is not included. Hidden entries are skipped and .gitignore
// rules are honored.
func (s *Service) Tree(ctx context.Context, q TreeQuery) (*TreeResult, error) {
	resolved, err := s.guard.Resolve(q.Path, access.Read)
	if err != nil {
		return nil, err
	}
	excludes, err := pattern.CompileExcludes(q.Excludes)
	if err != nil {
		return nil, err
	}

	depth := q.MaxDepth
	if depth <= 0 {
		depth = DefaultTreeDepth
	}

	result := &TreeResult{}
	// Index of directory nodes by relative path, for attaching children.
	dirs := map[string]*TreeNode{}

	entries := walker.Walk(ctx, resolved.Path, walker.Options{
		MaxDepth:      depth,
		RespectIgnore: true,
		Excludes:      excludes,
	})
	for entry := range entries {
		name := entry.Name
		switch {
		case entry.IsSymlink:
			name += "@"
		case entry.IsDir:
			name += "/"
		}
		node := &TreeNode{Name: name}

		if entry.IsDir && !entry.IsSymlink {
			dirs[entry.RelPath] = node
			if entry.Depth == depth && dirHasVisibleChildren(entry.Path) {
				result.Truncated = true
			}
		}

		parentRel := parentRelPath(entry.RelPath)
		if parentRel == "" {
			result.Nodes = append(result.Nodes, node)
		} else if parent, ok := dirs[parentRel]; ok {
			parent.Children = append(parent.Children, node)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func parentRelPath(rel string) string {
	idx := strings.LastIndexByte(rel, '/')
	if idx == -1 {
		return ""
	}
	return rel[:idx]
}

// dirHasVisibleChildren reports whether dir contains any non-hidden
// entry. Used to flag depth-limit truncation.
func dirHasVisibleChildren(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			return true
		}
	}
	return false
}
