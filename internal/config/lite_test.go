package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"SYMPDX_DATA_DIR", "SYMPDX_CATALOG_PATH",
		"SYMPDX_HIGH_BAND", "SYMPDX_MEDIUM_BAND", "SYMPDX_MIN_SCORE",
		"SYMPDX_MAX_RESULTS", "SYMPDX_CACHE_SIZE",
		"SYMPDX_HISTORY_LIMIT", "SYMPDX_SNAPSHOT_TOP_N", "SYMPDX_BACKUP_DAYS",
		"SYMPDX_HTTP_PORT", "SYMPDX_LOG_LEVEL", "SYMPDX_LOG_FORMAT",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 0.75, cfg.HighBandThreshold)
	assert.Equal(t, 0.40, cfg.MediumBandThreshold)
	assert.Equal(t, 0.0, cfg.MinScore)
	assert.Equal(t, 50, cfg.MaxResults)
	assert.Equal(t, 1000, cfg.CacheSize)
	assert.Equal(t, 500, cfg.DefaultQueryLimit)
	assert.Equal(t, 10, cfg.SnapshotTopN)
	assert.Equal(t, 30, cfg.BackupDaysToKeep)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 0.75, cfg.HighBandThreshold)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)
	defer clearEnvVars(t)

	os.Setenv("SYMPDX_DATA_DIR", "/tmp/test-sympdx")
	os.Setenv("SYMPDX_HIGH_BAND", "0.8")
	os.Setenv("SYMPDX_MEDIUM_BAND", "0.5")
	os.Setenv("SYMPDX_MIN_SCORE", "0.05")
	os.Setenv("SYMPDX_MAX_RESULTS", "20")
	os.Setenv("SYMPDX_HISTORY_LIMIT", "100")
	os.Setenv("SYMPDX_HTTP_PORT", "9090")
	os.Setenv("SYMPDX_LOG_LEVEL", "debug")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-sympdx", cfg.DataDir)
	assert.Equal(t, "/tmp/test-sympdx/catalog.json", cfg.CatalogPath)
	assert.Equal(t, 0.8, cfg.HighBandThreshold)
	assert.Equal(t, 0.5, cfg.MediumBandThreshold)
	assert.Equal(t, 0.05, cfg.MinScore)
	assert.Equal(t, 20, cfg.MaxResults)
	assert.Equal(t, 100, cfg.DefaultQueryLimit)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadLiteConfig_IgnoresInvalidValues(t *testing.T) {
	clearEnvVars(t)
	defer clearEnvVars(t)

	os.Setenv("SYMPDX_HIGH_BAND", "1.5")
	os.Setenv("SYMPDX_MAX_RESULTS", "not-a-number")
	os.Setenv("SYMPDX_HTTP_PORT", "-1")

	cfg := LoadLiteConfig()

	assert.Equal(t, 0.75, cfg.HighBandThreshold)
	assert.Equal(t, 50, cfg.MaxResults)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestLiteConfig_Paths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.sympdx"}

	assert.Equal(t, "/home/user/.sympdx/sympdx.db", cfg.StoreDBPath())
	assert.Equal(t, "/home/user/.sympdx/exports", cfg.ExportDir())
	assert.Equal(t, "/home/user/.sympdx/backups", cfg.BackupDir())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: t.TempDir() + "/data"}

	require.NoError(t, cfg.EnsureDataDir())

	for _, dir := range []string{cfg.DataDir, cfg.ExportDir(), cfg.BackupDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
