package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindConfigFile_ExplicitPath(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "custom.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("database:\n  url: postgres://x"), 0o644))

	path, err := findConfigFile(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, tmpFile, path)
}

func TestFindConfigFile_ExplicitPathNotFound(t *testing.T) {
	_, err := findConfigFile("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestFindConfigFile_AutoDiscovery(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	configPath := filepath.Join(root, "meshauth.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("database:\n  url: postgres://x"), 0o644))

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(cwd) }()
	require.NoError(t, os.Chdir(nested))

	found, err := findConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, configPath, found)
}

func TestLoadConfig_Defaults(t *testing.T) {
	root := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(cwd) }()
	require.NoError(t, os.Chdir(root))

	cfg, path, err := LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.False(t, cfg.Auth.AllowPlaintext)
	assert.Equal(t, 0, cfg.Cache.Size)
}

func TestConfigError_UsesExitConfigCode(t *testing.T) {
	err := ConfigError("bad config", nil)
	assert.Equal(t, ExitConfig, err.Code)
	assert.Contains(t, err.Error(), "bad config")
}
