package config

import "time"

const (
	DefaultDragonVersion      = 7
	DefaultDragonShellPattern = "dragon%dshell"
	DefaultDragonOutputDir    = "./"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisPoolSize = 10
	DefaultRedisTimeout  = 3 * time.Second
	DefaultJobTTL        = 7 * 24 * time.Hour

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "dragon-artifacts"

	DefaultMetricsAddr = ":9464"
)

// ApplyDefaults fills every zero-value field in cfg with the project default.
// Fields already set by the caller are left unchanged so that explicit
// configuration always wins.  It must run after unmarshalling and before
// Validate so optional-but-defaulted fields are never seen as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Dragon.Version == 0 {
		cfg.Dragon.Version = DefaultDragonVersion
	}
	if cfg.Dragon.ShellPattern == "" {
		cfg.Dragon.ShellPattern = DefaultDragonShellPattern
	}
	if cfg.Dragon.OutputDir == "" {
		cfg.Dragon.OutputDir = DefaultDragonOutputDir
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stderr"}
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.JobTTL == 0 {
		cfg.Redis.JobTTL = DefaultJobTTL
	}

	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
}
