package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOWNLOAD_DIR", filepath.Join(dir, "downloads"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "127.0.0.1:5000", cfg.Addr())
	assert.Equal(t, 600*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 60*time.Second, cfg.IdleCheckInterval)
	assert.Equal(t, IdleActionSleep, cfg.IdleAction)

	// The download directory is created on load.
	assert.DirExists(t, cfg.DownloadDir)
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOWNLOAD_DIR", dir)
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "8090")
	t.Setenv("IDLE_TIMEOUT", "180")
	t.Setenv("IDLE_CHECK_INTERVAL", "5")
	t.Setenv("IDLE_ACTION", "shutdown")
	t.Setenv("HISTORY_DB", filepath.Join(dir, "h.db"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8090", cfg.Addr())
	assert.Equal(t, 180*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 5*time.Second, cfg.IdleCheckInterval)
	assert.Equal(t, IdleActionShutdown, cfg.IdleAction)
	assert.Equal(t, filepath.Join(dir, "h.db"), cfg.HistoryDB)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOWNLOAD_DIR", dir)

	t.Setenv("IDLE_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
	t.Setenv("IDLE_TIMEOUT", "")

	t.Setenv("IDLE_ACTION", "hibernate")
	_, err = Load()
	assert.Error(t, err)
}
