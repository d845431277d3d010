package access

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fskit/internal/errors"
)

func newTestGuard(t *testing.T, dirs []string, opts Options) *Guard {
	t.Helper()
	g, err := NewGuard(dirs, opts)
	require.NoError(t, err)
	return g
}

func TestResolveInsideRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	g := newTestGuard(t, []string{root}, Options{})

	rp, err := g.Resolve(file, Read)
	require.NoError(t, err)
	assert.True(t, rp.Exists)

	// The root itself is inside the sandbox.
	_, err = g.Resolve(root, Read)
	assert.NoError(t, err)
}

func TestResolveOutsideRoot(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	g := newTestGuard(t, []string{root}, Options{})

	_, err := g.Resolve(filepath.Join(other, "x.txt"), Read)
	assert.True(t, errors.IsCode(err, errors.OutsideAllowedRoots))
}

func TestSeparatorBoundaryContainment(t *testing.T) {
	base := t.TempDir()
	allowed := filepath.Join(base, "allowed")
	sibling := filepath.Join(base, "allowed-other")
	require.NoError(t, os.Mkdir(allowed, 0755))
	require.NoError(t, os.Mkdir(sibling, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sibling, "f"), nil, 0644))

	g := newTestGuard(t, []string{allowed}, Options{})

	_, err := g.Resolve(filepath.Join(sibling, "f"), Read)
	assert.True(t, errors.IsCode(err, errors.OutsideAllowedRoots))
}

func TestDotDotEscape(t *testing.T) {
	base := t.TempDir()
	allowed := filepath.Join(base, "allowed")
	require.NoError(t, os.Mkdir(allowed, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "secret"), []byte("s"), 0644))

	g := newTestGuard(t, []string{allowed}, Options{})

	_, err := g.Resolve(filepath.Join(allowed, "..", "secret"), Read)
	assert.True(t, errors.IsCode(err, errors.OutsideAllowedRoots))
}

func TestSymlinkEscape(t *testing.T) {
	base := t.TempDir()
	allowed := filepath.Join(base, "allowed")
	outside := filepath.Join(base, "outside")
	require.NoError(t, os.Mkdir(allowed, 0755))
	require.NoError(t, os.Mkdir(outside, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("s"), 0644))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret"), filepath.Join(allowed, "link")))

	g := newTestGuard(t, []string{allowed}, Options{})

	_, err := g.Resolve(filepath.Join(allowed, "link"), Read)
	assert.True(t, errors.IsCode(err, errors.OutsideAllowedRoots))
}

func TestReadMissingIsNotFound(t *testing.T) {
	root := t.TempDir()
	g := newTestGuard(t, []string{root}, Options{})

	_, err := g.Resolve(filepath.Join(root, "missing.txt"), Read)
	assert.True(t, errors.IsCode(err, errors.NotFound))
}

func TestWriteModes(t *testing.T) {
	root := t.TempDir()

	readonly := newTestGuard(t, []string{root}, Options{})
	_, err := readonly.Resolve(filepath.Join(root, "new.txt"), Write)
	assert.True(t, errors.IsCode(err, errors.NoWriteAccess))

	writable := newTestGuard(t, []string{root}, Options{AllowWrite: true})
	rp, err := writable.Resolve(filepath.Join(root, "new.txt"), Write)
	require.NoError(t, err)
	assert.False(t, rp.Exists)

	// CreateParent tolerates absent intermediate directories.
	rp, err = writable.Resolve(filepath.Join(root, "a", "b", "new.txt"), CreateParent)
	require.NoError(t, err)
	assert.False(t, rp.Exists)
}

func TestFileSchemeAndCleanHandling(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	g := newTestGuard(t, []string{root}, Options{})

	rp, err := g.Resolve("file://"+file, Read)
	require.NoError(t, err)
	assert.True(t, rp.Exists)

	rp2, err := g.Resolve(filepath.Join(root, ".", "a.txt"), Read)
	require.NoError(t, err)
	assert.Equal(t, rp.Path, rp2.Path)
}

func TestApplyRootsUpdate(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	t.Run("ignored without capability", func(t *testing.T) {
		g := newTestGuard(t, []string{first}, Options{})
		require.NoError(t, g.ApplyRootsUpdate([]string{second}))
		_, err := g.Resolve(second, Read)
		assert.True(t, errors.IsCode(err, errors.OutsideAllowedRoots))
	})

	t.Run("applied with capability", func(t *testing.T) {
		g := newTestGuard(t, []string{first}, Options{DynamicRoots: true})
		require.NoError(t, g.ApplyRootsUpdate([]string{second}))

		_, err := g.Resolve(second, Read)
		assert.NoError(t, err)
		_, err = g.Resolve(first, Read)
		assert.True(t, errors.IsCode(err, errors.OutsideAllowedRoots))
	})

	t.Run("all or nothing", func(t *testing.T) {
		g := newTestGuard(t, []string{first}, Options{DynamicRoots: true})
		err := g.ApplyRootsUpdate([]string{second, filepath.Join(second, "missing")})
		assert.Error(t, err)

		// Failed updates leave the previous set intact.
		_, err = g.Resolve(first, Read)
		assert.NoError(t, err)
	})
}

func TestNewGuardValidation(t *testing.T) {
	_, err := NewGuard(nil, Options{})
	assert.Error(t, err)

	_, err = NewGuard([]string{filepath.Join(t.TempDir(), "missing")}, Options{})
	assert.True(t, errors.IsCode(err, errors.NotFound))

	file := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = NewGuard([]string{file}, Options{})
	assert.True(t, errors.IsCode(err, errors.InvalidParameter))
}

func TestGuardList(t *testing.T) {
	root := t.TempDir()
	g := newTestGuard(t, []string{root}, Options{})

	canonical, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, []string{canonical}, g.List())

	// Mutating the returned slice must not affect the guard.
	got := g.List()
	got[0] = "/elsewhere"
	assert.Equal(t, []string{canonical}, g.List())
}
