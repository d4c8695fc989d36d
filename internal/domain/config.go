package domain

import (
	"time"
)

// Config is the main application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Engine      EngineConfig      `mapstructure:"engine"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	History     HistoryConfig     `mapstructure:"history"`
	Backup      BackupConfig      `mapstructure:"backup"`
	Terminology TerminologyConfig `mapstructure:"terminology"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig holds Redis cache settings. Redis is an optional second tier
// behind the in-memory result cache.
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// LoggingConfig holds logrus settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, stderr, file path
}

// EngineConfig holds the scoring and ranking policy of the diagnosis
// engine. Band thresholds and cutoffs live here as named configuration,
// never as literals inside the algorithm.
type EngineConfig struct {
	// HighBandThreshold and MediumBandThreshold discretize scores into
	// confidence bands: HIGH when score >= high, MEDIUM when >= medium,
	// otherwise LOW.
	HighBandThreshold   float64 `mapstructure:"high_band_threshold"`
	MediumBandThreshold float64 `mapstructure:"medium_band_threshold"`

	// MinScore excludes candidates scoring below it. Zero keeps every
	// disease with at least one matched symptom.
	MinScore float64 `mapstructure:"min_score"`

	// MaxResults caps topN requests.
	MaxResults int `mapstructure:"max_results"`

	// CacheSize is the number of entries held by the in-memory result
	// cache that wraps the engine.
	CacheSize int `mapstructure:"cache_size"`
}

// CatalogConfig holds catalog source settings.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// HistoryConfig holds history retention and query settings.
type HistoryConfig struct {
	// DefaultQueryLimit bounds history listings when the caller does not
	// specify a limit.
	DefaultQueryLimit int `mapstructure:"default_query_limit"`

	// SnapshotTopN is how many ranked candidates are persisted per record.
	SnapshotTopN int `mapstructure:"snapshot_top_n"`
}

// BackupConfig holds file backup settings for the lite (file-backed) mode.
type BackupConfig struct {
	Dir        string `mapstructure:"dir"`
	DaysToKeep int    `mapstructure:"days_to_keep"`
}

// TerminologyConfig holds the ICD-10 terminology lookup client settings.
type TerminologyConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  int           `mapstructure:"rate_limit"`
	RetryCount int           `mapstructure:"retry_count"`
}

// BandFor maps a score onto its confidence band using the configured
// thresholds.
func (ec EngineConfig) BandFor(score float64) ConfidenceBand {
	switch {
	case score >= ec.HighBandThreshold:
		return BandHigh
	case score >= ec.MediumBandThreshold:
		return BandMedium
	default:
		return BandLow
	}
}
