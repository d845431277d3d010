// Package search implements the sandboxed search operations: file name
// search, content search, structural code search, duplicate detection,
// directory trees and empty-directory discovery. All traversal goes
// through the shared walker and every entry path passed the access guard
// at the operation boundary.
package search

import (
	"fskit/internal/access"
	"fskit/internal/astsearch"
	"fskit/internal/config"
	"fskit/internal/logging"
	"fskit/internal/walker"
)

// Options configures a Service.
type Options struct {
	// Workers bounds concurrent per-file work; 0 means min(NumCPU, 8).
	Workers int
	// MaxDepth is the default traversal depth limit; 0 means the walker
	// default.
	MaxDepth int
	// CacheEntries sizes the AST cache; 0 means 256.
	CacheEntries int
	Logger       *logging.Logger
}

// Service executes search operations inside the guard's sandbox.
type Service struct {
	guard    *access.Guard
	logger   *logging.Logger
	cache    *astsearch.TreeCache
	workers  int
	maxDepth int
}

// NewService creates a search service bound to guard.
func NewService(guard *access.Guard, opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	workers := config.DefaultWorkers(opts.Workers)

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = walker.DefaultMaxDepth
	}

	cacheEntries := opts.CacheEntries
	if cacheEntries <= 0 {
		cacheEntries = 256
	}
	cache, err := astsearch.NewTreeCache(cacheEntries)
	if err != nil {
		return nil, err
	}

	return &Service{
		guard:    guard,
		logger:   logger,
		cache:    cache,
		workers:  workers,
		maxDepth: maxDepth,
	}, nil
}

// Guard exposes the underlying access guard.
func (s *Service) Guard() *access.Guard { return s.guard }

// CacheStats returns cumulative AST cache hit and miss counts.
func (s *Service) CacheStats() (hits, misses int64) {
	return s.cache.Stats()
}

// PurgeCache drops every cached parse tree. Called when the sandbox
// roots change, since cached paths may no longer be reachable.
func (s *Service) PurgeCache() {
	s.cache.Purge()
}

func (s *Service) depthOr(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.maxDepth
}
