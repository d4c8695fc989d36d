// Package config provides configuration management for the diagnosis
// server. The full server mode loads layered configuration through Viper;
// the lite mode (lite.go) is environment-only.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/sympdx-server/internal/domain"
)

// Manager loads and holds the application configuration.
type Manager struct {
	config *domain.Config
}

// NewManager creates a configuration manager and loads configuration from
// file, environment and defaults.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources.
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/sympdx-server/")

	viper.SetEnvPrefix("SYMPDX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars cover the rest.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values.
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "sympdx")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.migrations_path", "migrations")

	// Cache defaults
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.default_ttl", "5m")
	viper.SetDefault("cache.max_retries", 3)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Engine defaults. Band thresholds follow the clinical review policy:
	// HIGH >= 0.75, MEDIUM >= 0.40.
	viper.SetDefault("engine.high_band_threshold", 0.75)
	viper.SetDefault("engine.medium_band_threshold", 0.40)
	viper.SetDefault("engine.min_score", 0.0)
	viper.SetDefault("engine.max_results", 50)
	viper.SetDefault("engine.cache_size", 1000)

	// Catalog defaults
	viper.SetDefault("catalog.path", "catalog.json")

	// History defaults
	viper.SetDefault("history.default_query_limit", 500)
	viper.SetDefault("history.snapshot_top_n", 10)

	// Backup defaults
	viper.SetDefault("backup.dir", "backups")
	viper.SetDefault("backup.days_to_keep", 30)

	// Terminology lookup defaults
	viper.SetDefault("terminology.enabled", false)
	viper.SetDefault("terminology.base_url", "https://icd10api.example.org/")
	viper.SetDefault("terminology.timeout", "30s")
	viper.SetDefault("terminology.rate_limit", 10)
	viper.SetDefault("terminology.retry_count", 3)
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns the HTTP server configuration.
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetDatabaseConfig returns the database configuration.
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetEngineConfig returns the diagnosis engine configuration.
func (m *Manager) GetEngineConfig() domain.EngineConfig {
	return m.config.Engine
}

// Reload reloads the configuration from its sources.
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration.
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if config.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if config.Database.Username == "" {
		return fmt.Errorf("database username is required")
	}

	if config.Engine.HighBandThreshold < config.Engine.MediumBandThreshold {
		return fmt.Errorf("high band threshold %.2f below medium band threshold %.2f",
			config.Engine.HighBandThreshold, config.Engine.MediumBandThreshold)
	}
	if config.Engine.MinScore < 0 || config.Engine.MinScore > 1 {
		return fmt.Errorf("engine min score must be in [0,1], got %.2f", config.Engine.MinScore)
	}
	if config.Engine.MaxResults < 1 {
		return fmt.Errorf("engine max results must be at least 1, got %d", config.Engine.MaxResults)
	}

	if config.Cache.Enabled && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when cache is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseURL returns the Postgres URL used by the migration runner.
func (m *Manager) GetDatabaseURL() string {
	db := m.config.Database
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.Username, db.Password, db.Host, db.Port, db.Database, db.SSLMode)
}

// GetDatabaseConnectionString returns a keyword/value connection string.
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}
