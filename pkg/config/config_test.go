package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "grantpay.yaml", "database:\n  host: db.internal\n  port: 5432\nsweeper:\n  stale_after: 1h\n")

	t.Run("reads the file", func(t *testing.T) {
		cfg, err := LoadFile("grantpay", path)
		require.NoError(t, err)

		assert.Equal(t, "db.internal", cfg.GetString("database.host"))
		assert.Equal(t, 5432, cfg.GetInt("database.port"))
		assert.Equal(t, path, cfg.ConfigFile())
	})

	t.Run("environment overrides file values", func(t *testing.T) {
		t.Setenv("GRANTPAY_DATABASE_HOST", "override.internal")

		cfg, err := LoadFile("grantpay", path)
		require.NoError(t, err)
		assert.Equal(t, "override.internal", cfg.GetString("database.host"))
	})

	t.Run("directory lookup by service name", func(t *testing.T) {
		cfg, err := LoadFile("grantpay", dir)
		require.NoError(t, err)
		assert.Equal(t, "1h", cfg.GetString("sweeper.stale_after"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile("grantpay", filepath.Join(dir, "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestLoad_UsesConfigPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yml", "service:\n  name: from-env\n")
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("grantpay")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.GetString("service.name"))
}
