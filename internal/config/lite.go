// This file contains the lightweight configuration for standalone
// operation: no Postgres, no Redis, everything under one data directory.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// LiteConfig is a simplified configuration for standalone operation. It
// requires no external services and uses SQLite plus a JSON catalog file.
type LiteConfig struct {
	// Data storage
	DataDir     string // base directory for data files
	CatalogPath string // JSON catalog file

	// Engine settings
	HighBandThreshold   float64
	MediumBandThreshold float64
	MinScore            float64
	MaxResults          int
	CacheSize           int

	// History settings
	DefaultQueryLimit int
	SnapshotTopN      int

	// Backup settings
	BackupDaysToKeep int

	// HTTP settings
	HTTPPort int

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".sympdx")

	return &LiteConfig{
		DataDir:             dataDir,
		CatalogPath:         filepath.Join(dataDir, "catalog.json"),
		HighBandThreshold:   0.75,
		MediumBandThreshold: 0.40,
		MinScore:            0.0,
		MaxResults:          50,
		CacheSize:           1000,
		DefaultQueryLimit:   500,
		SnapshotTopN:        10,
		BackupDaysToKeep:    30,
		HTTPPort:            8080,
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// LoadLiteConfig loads configuration from environment variables, falling
// back to defaults when unset.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("SYMPDX_DATA_DIR"); v != "" {
		cfg.DataDir = v
		cfg.CatalogPath = filepath.Join(v, "catalog.json")
	}
	if v := os.Getenv("SYMPDX_CATALOG_PATH"); v != "" {
		cfg.CatalogPath = v
	}

	if v := os.Getenv("SYMPDX_HIGH_BAND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.HighBandThreshold = f
		}
	}
	if v := os.Getenv("SYMPDX_MEDIUM_BAND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.MediumBandThreshold = f
		}
	}
	if v := os.Getenv("SYMPDX_MIN_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.MinScore = f
		}
	}
	if v := os.Getenv("SYMPDX_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxResults = n
		}
	}
	if v := os.Getenv("SYMPDX_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheSize = n
		}
	}
	if v := os.Getenv("SYMPDX_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DefaultQueryLimit = n
		}
	}
	if v := os.Getenv("SYMPDX_SNAPSHOT_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SnapshotTopN = n
		}
	}
	if v := os.Getenv("SYMPDX_BACKUP_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BackupDaysToKeep = n
		}
	}
	if v := os.Getenv("SYMPDX_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	if v := os.Getenv("SYMPDX_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SYMPDX_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// StoreDBPath returns the path to the SQLite database holding patients and
// diagnosis history.
func (c *LiteConfig) StoreDBPath() string {
	return filepath.Join(c.DataDir, "sympdx.db")
}

// ExportDir returns the directory for report exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// BackupDir returns the directory for file backups.
func (c *LiteConfig) BackupDir() string {
	return filepath.Join(c.DataDir, "backups")
}

// EnsureDataDir creates the data, export and backup directories.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(c.ExportDir(), 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.BackupDir(), 0755)
}
