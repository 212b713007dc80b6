// Package config defines all configuration structures for dragonctl.
// No I/O or parsing logic lives here — only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// DragonConfig holds the settings that shape script generation and the
// invocation of the external Dragon shell.
type DragonConfig struct {
	// Version selects the script schema: 6 or 7.
	Version int `mapstructure:"version"`
	// ShellPattern is the executable name pattern; %d is replaced with the
	// major version, e.g. "dragon%dshell" → "dragon7shell".
	ShellPattern string `mapstructure:"shell_pattern"`
	// OutputDir is the default directory scripts and results are written to.
	OutputDir string `mapstructure:"output_dir"`
}

// LogConfig holds logging tunables.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// RedisConfig holds the connection parameters for the job store.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// JobTTL bounds how long finished job records are retained.
	JobTTL time.Duration `mapstructure:"job_ttl"`
}

// MinIOConfig holds the object-storage parameters for archived artifacts.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Config is the root configuration object for all dragonctl commands.
type Config struct {
	Dragon  DragonConfig  `mapstructure:"dragon"`
	Log     LogConfig     `mapstructure:"log"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MinIO   MinIOConfig   `mapstructure:"minio"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// Validate checks cross-field consistency and value ranges.  It assumes
// ApplyDefaults has already run, so zero values indicate genuine omissions.
func (c *Config) Validate() error {
	// Dragon
	switch c.Dragon.Version {
	case 6, 7:
	default:
		return fmt.Errorf("config: dragon.version %d is invalid; expected 6 or 7", c.Dragon.Version)
	}
	if c.Dragon.ShellPattern == "" {
		return fmt.Errorf("config: dragon.shell_pattern is required")
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Redis
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}
	if c.Redis.PoolSize < 1 {
		return fmt.Errorf("config: redis.pool_size must be ≥ 1, got %d", c.Redis.PoolSize)
	}

	// MinIO
	if c.MinIO.Endpoint == "" {
		return fmt.Errorf("config: minio.endpoint is required")
	}
	if c.MinIO.Bucket == "" {
		return fmt.Errorf("config: minio.bucket is required")
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("config: metrics.addr is required when metrics are enabled")
	}

	return nil
}
