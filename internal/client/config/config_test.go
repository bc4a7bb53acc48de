package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	cfg := Default()
	cfg.VaultDir = filepath.Join(dir, "vault")
	cfg.ServerURL = "https://vault.example.com"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.VaultDir, loaded.VaultDir)
	assert.Equal(t, cfg.ServerURL, loaded.ServerURL)
	assert.Equal(t, path, loaded.Path)
	assert.Equal(t, DefaultBatchSize, loaded.BatchSize)
}

func TestConfig_LoadFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"vault_dir":"/tmp/v","server_url":"http://localhost:9000"}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounceDelayMs, cfg.DebounceDelayMs)
	assert.Equal(t, DefaultBulkBatchSize, cfg.BulkBatchSize)
	assert.Equal(t, DefaultQueueCapacity, cfg.QueueCapacity)
	assert.Equal(t, DefaultPullIntervalSec, cfg.PullIntervalSec)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := Default()
		cfg.ServerURL = "https://vault.example.com"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("empty server url is allowed", func(t *testing.T) {
		cfg := Default()
		cfg.ServerURL = ""
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing vault dir", func(t *testing.T) {
		cfg := Default()
		cfg.VaultDir = ""
		assert.ErrorIs(t, cfg.Validate(), ErrNoVaultDir)
	})

	t.Run("bad server url", func(t *testing.T) {
		cfg := Default()
		cfg.ServerURL = "not a url"
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidServer)
	})

	t.Run("non-positive batch size", func(t *testing.T) {
		cfg := Default()
		cfg.BatchSize = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidNumbers)
	})
}
