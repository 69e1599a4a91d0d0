package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.Tools.Packmol.Executable)
	assert.Equal(t, 300*time.Second, cfg.Tools.Packmol.Timeout.Std())
	assert.Equal(t, 2.0, cfg.Substitution.Tolerance)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_OverridesKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
tools:
  packmol:
    executable: /opt/packmol/bin/packmol
    timeout: 120s
  viamd:
    timeout: 60
store:
  backend: redis
  redis:
    addr: redis.lab:6379
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/packmol/bin/packmol", cfg.Tools.Packmol.Executable)
	assert.Equal(t, 120*time.Second, cfg.Tools.Packmol.Timeout.Std())
	assert.Equal(t, 60*time.Second, cfg.Tools.Viamd.Timeout.Std(), "bare numbers are seconds")
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis.lab:6379", cfg.Store.Redis.Addr)
	// Untouched sections keep their defaults.
	assert.Equal(t, "auto", cfg.Tools.Viamd.Executable)
	assert.Equal(t, 2.0, cfg.Substitution.Tolerance)
}

func TestLoad_Validation(t *testing.T) {
	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad backend", func(t *testing.T) {
		_, err := Load(write(t, "store:\n  backend: postgres\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store backend")
	})

	t.Run("bad level", func(t *testing.T) {
		_, err := Load(write(t, "logging:\n  level: loud\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log level")
	})

	t.Run("bad tolerance", func(t *testing.T) {
		_, err := Load(write(t, "substitution:\n  tolerance: -1\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tolerance")
	})
}
