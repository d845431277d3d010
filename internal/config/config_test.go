package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Version)
	assert.False(t, cfg.AllowWrite)
	assert.False(t, cfg.EnableRoots)
	assert.Equal(t, 20, cfg.Walker.MaxDepth)
	assert.Equal(t, 256, cfg.Cache.MaxASTEntries)
	assert.Equal(t, "human", cfg.Logging.Format)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".fskit"), 0755))

	raw := `{
  "version": 1,
  "allowedDirectories": ["/srv/data"],
  "allowWrite": true,
  "walker": {"maxDepth": 5},
  "logging": {"format": "json", "level": "debug"}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".fskit", "config.json"), []byte(raw), 0644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"/srv/data"}, cfg.AllowedDirectories)
	assert.True(t, cfg.AllowWrite)
	assert.Equal(t, 5, cfg.Walker.MaxDepth)
	// Unset sections keep their defaults.
	assert.Equal(t, 256, cfg.Cache.MaxASTEntries)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.AllowedDirectories = []string{"/srv/a", "/srv/b"}
	cfg.EnableRoots = true
	require.NoError(t, cfg.Save(dir))

	loaded, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg.AllowedDirectories, loaded.AllowedDirectories)
	assert.True(t, loaded.EnableRoots)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Version = 2
	assert.ErrorContains(t, cfg.Validate(), "version")

	cfg = DefaultConfig()
	cfg.Walker.MaxDepth = -1
	assert.ErrorContains(t, cfg.Validate(), "maxDepth")

	cfg = DefaultConfig()
	cfg.Logging.Format = "xml"
	assert.ErrorContains(t, cfg.Validate(), "logging.format")
}

func TestDefaultWorkers(t *testing.T) {
	assert.Equal(t, 4, DefaultWorkers(4))
	got := DefaultWorkers(0)
	assert.GreaterOrEqual(t, got, 1)
	assert.LessOrEqual(t, got, 8)
}
