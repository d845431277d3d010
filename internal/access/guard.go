// Package access enforces the sandbox boundary. Every path argument a tool
// receives passes through Guard.Resolve before any filesystem access, and
// the resolution works on the symlink-resolved path so links cannot smuggle
// reads outside the allowed roots.
package access

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fskit/internal/errors"
	"fskit/internal/logging"
)

// Mode describes the intended use of a resolved path.
type Mode int

const (
	// Read requires the target to exist inside an allowed root.
	Read Mode = iota
	// Write allows the target to be absent, but its resolved location must
	// be inside an allowed root.
	Write
	// CreateParent requires the nearest existing ancestor to be inside an
	// allowed root; the target and intermediate directories may be absent.
	CreateParent
)

// ResolvedPath is the outcome of a successful Resolve call.
type ResolvedPath struct {
	// Path is the canonical absolute path with symlinks in every existing
	// ancestor resolved.
	Path string
	// Exists reports whether the target itself exists.
	Exists bool
}

// Options controls Guard construction.
type Options struct {
	// AllowWrite enables the Write and CreateParent modes.
	AllowWrite bool
	// DynamicRoots lets ApplyRootsUpdate replace the root set at runtime.
	DynamicRoots bool
	Logger       *logging.Logger
}

// Guard validates paths against a set of allowed root directories.
type Guard struct {
	mu    sync.RWMutex
	roots []string

	allowWrite   bool
	dynamicRoots bool
	logger       *logging.Logger
}

// NewGuard canonicalizes the given directories and returns a guard over
// them. Every directory must exist.
func NewGuard(dirs []string, opts Options) (*Guard, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	roots, err := canonicalizeRoots(dirs)
	if err != nil {
		return nil, err
	}

	return &Guard{
		roots:        roots,
		allowWrite:   opts.AllowWrite,
		dynamicRoots: opts.DynamicRoots,
		logger:       logger,
	}, nil
}

func canonicalizeRoots(dirs []string) ([]string, error) {
	if len(dirs) == 0 {
		return nil, errors.New(errors.InvalidParameter, "at least one allowed directory is required")
	}

	roots := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		expanded, err := ExpandHome(stripFileScheme(dir))
		if err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return nil, errors.Wrap(errors.InvalidParameter, "cannot resolve allowed directory "+dir, err)
		}
		canonical, err := filepath.EvalSymlinks(abs)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewNotFoundError(abs)
			}
			return nil, errors.Wrap(errors.OperationFailed, "cannot canonicalize "+abs, err)
		}
		info, err := os.Stat(canonical)
		if err != nil {
			return nil, errors.Wrap(errors.OperationFailed, "cannot stat "+canonical, err)
		}
		if !info.IsDir() {
			return nil, errors.New(errors.InvalidParameter, "allowed path is not a directory: "+canonical)
		}
		roots = append(roots, canonical)
	}
	return roots, nil
}

// ExpandHome replaces a leading ~ with the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.OperationFailed, "cannot determine home directory", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

func stripFileScheme(path string) string {
	return strings.TrimPrefix(path, "file://")
}

// Resolve validates path for the given mode and returns its canonical form.
func (g *Guard) Resolve(path string, mode Mode) (ResolvedPath, error) {
	if mode != Read && !g.allowWrite {
		return ResolvedPath{}, errors.NewNoWriteAccessError()
	}

	expanded, err := ExpandHome(stripFileScheme(path))
	if err != nil {
		return ResolvedPath{}, err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return ResolvedPath{}, errors.Wrap(errors.InvalidParameter, "cannot resolve path "+path, err)
	}
	abs = filepath.Clean(abs)

	resolved, exists, err := resolveThroughAncestors(abs)
	if err != nil {
		return ResolvedPath{}, err
	}

	g.mu.RLock()
	roots := g.roots
	g.mu.RUnlock()

	if !containedInAny(resolved, roots) {
		return ResolvedPath{}, errors.NewOutsideRootsError(path)
	}

	switch mode {
	case Read:
		if !exists {
			return ResolvedPath{}, errors.NewNotFoundError(path)
		}
	case CreateParent:
		// The existing-ancestor resolution above already anchored the
		// path; nothing more to check.
	}

	return ResolvedPath{Path: resolved, Exists: exists}, nil
}

// resolveThroughAncestors resolves symlinks through the deepest existing
// ancestor of abs and re-appends the non-existing suffix unchanged.
func resolveThroughAncestors(abs string) (string, bool, error) {
	if canonical, err := filepath.EvalSymlinks(abs); err == nil {
		return canonical, true, nil
	} else if !os.IsNotExist(err) {
		return "", false, errors.Wrap(errors.OperationFailed, "cannot canonicalize "+abs, err)
	}

	var suffix []string
	current := abs
	for {
		parent := filepath.Dir(current)
		if parent == current {
			// Hit the filesystem root without finding anything.
			return abs, false, nil
		}
		suffix = append([]string{filepath.Base(current)}, suffix...)

		canonical, err := filepath.EvalSymlinks(parent)
		if err == nil {
			parts := append([]string{canonical}, suffix...)
			return filepath.Clean(filepath.Join(parts...)), false, nil
		}
		if !os.IsNotExist(err) {
			return "", false, errors.Wrap(errors.OperationFailed, "cannot canonicalize "+parent, err)
		}
		current = parent
	}
}

// containedInAny reports whether path equals a root or lives beneath one.
// Containment is checked on separator boundaries so /allowed never matches
// /allowed-other.
func containedInAny(path string, roots []string) bool {
	for _, root := range roots {
		if path == root {
			return true
		}
		if strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// List returns a copy of the current allowed roots.
func (g *Guard) List() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.roots))
	copy(out, g.roots)
	return out
}

// ApplyRootsUpdate replaces the allowed roots with dirs. The update is
// all-or-nothing: if any directory fails canonicalization the current set
// stays in place. When the guard was built without dynamic roots the
// update is logged and ignored.
func (g *Guard) ApplyRootsUpdate(dirs []string) error {
	if !g.dynamicRoots {
		g.logger.Warn("ignoring roots update: dynamic roots disabled", map[string]interface{}{
			"count": len(dirs),
		})
		return nil
	}

	roots, err := canonicalizeRoots(dirs)
	if err != nil {
		g.logger.Error("rejecting roots update", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	g.mu.Lock()
	g.roots = roots
	g.mu.Unlock()

	g.logger.Info("allowed roots updated", map[string]interface{}{
		"roots": roots,
	})
	return nil
}
