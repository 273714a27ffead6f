package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_OverridesDefaults(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bpt.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
storage:
  path: /tmp/x.db
  cache_size: 64
tree:
  max_keys: 4
logger:
  level: debug
`), 0644))

	cfg, err := Load(file)
	require.NoError(t, err)

	require.Equal(t, "/tmp/x.db", cfg.Storage.Path)
	require.Equal(t, 64, cfg.Storage.CacheSize)
	require.Equal(t, 0.8, cfg.Storage.EvictRatio)
	require.Equal(t, 4, cfg.Tree.MaxKeys)
	require.Equal(t, 340, cfg.Tree.MaxEntriesLeaf)
	require.Equal(t, "debug", cfg.Logger.Level)
	require.Equal(t, "text", cfg.Logger.Format)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("storage: [1, 2"), 0644))
	_, err = Load(file)
	require.Error(t, err)
}
