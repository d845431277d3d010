package astsearch

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/zeebo/blake3"

	"fskit/internal/grammar"
)

// TreeCache is an LRU cache of parsed syntax trees keyed by file path.
// Entries carry a content fingerprint so edited files reparse instead of
// serving a stale tree. Evicted trees are reclaimed by the runtime.
type TreeCache struct {
	entries *lru.Cache[string, *treeEntry]
	hits    atomic.Int64
	misses  atomic.Int64
}

type treeEntry struct {
	digest [32]byte
	lang   grammar.Language
	tree   *sitter.Tree
	source []byte
}

// NewTreeCache creates a cache holding at most maxEntries trees.
func NewTreeCache(maxEntries int) (*TreeCache, error) {
	entries, err := lru.New[string, *treeEntry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &TreeCache{entries: entries}, nil
}

// Get returns the parse tree for path with the given content, reusing a
// cached tree when the content fingerprint still matches.
func (c *TreeCache) Get(ctx context.Context, path string, source []byte, lang grammar.Language) (*sitter.Tree, error) {
	digest := blake3.Sum256(source)

	if e, ok := c.entries.Get(path); ok && e.digest == digest && e.lang == lang {
		c.hits.Add(1)
		return e.tree, nil
	}
	c.misses.Add(1)

	tree, err := grammar.Parse(ctx, source, lang)
	if err != nil {
		return nil, err
	}
	c.entries.Add(path, &treeEntry{digest: digest, lang: lang, tree: tree, source: source})
	return tree, nil
}

// Stats returns cumulative hit and miss counts.
func (c *TreeCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached trees.
func (c *TreeCache) Len() int {
	return c.entries.Len()
}

// Purge drops every cached tree.
func (c *TreeCache) Purge() {
	c.entries.Purge()
}
