// Package config provides centralized configuration management for the application.
// Settings are layered: struct-tag defaults, then an optional YAML file named
// by GRADEBOOK_CONFIG, then environment variables. Everything is validated on
// startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig    `koanf:"server"`
	Data     DataConfig      `koanf:"data"`
	Ingest   IngestConfig    `koanf:"ingest"`
	Database DatabaseConfig  `koanf:"database"`
	Rate     RateLimitConfig `koanf:"rate_limit"`
	Logging  LoggingConfig   `koanf:"logging"`
	Metrics  MetricsConfig   `koanf:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `koanf:"host" env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8000)
	Port int `koanf:"port" env:"SERVER_PORT" default:"8000"`

	// ReadTimeout is the maximum duration for reading the request (default: 30s)
	ReadTimeout time.Duration `koanf:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing the response (default: 60s)
	WriteTimeout time.Duration `koanf:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `koanf:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `koanf:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// AllowedOrigins is a comma-separated CORS allow list (default: *)
	AllowedOrigins []string `koanf:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS" default:"*"`

	// TrustedProxies lists proxy CIDRs whose X-Real-IP / X-Forwarded-For headers are honoured
	TrustedProxies []string `koanf:"trusted_proxies" env:"SERVER_TRUSTED_PROXIES"`
}

// DataConfig locates source files and the cache.
type DataConfig struct {
	// SourceDir holds the grade files; the newest is loaded (default: data/raw)
	SourceDir string `koanf:"source_dir" env:"SOURCE_DIR" default:"data/raw"`

	// CacheDir holds the cache generation and grading system (default: data/processed)
	CacheDir string `koanf:"cache_dir" env:"CACHE_DIR" default:"data/processed"`

	// HotCacheTTL is how long a decoded table stays in memory (default: 10m, 0 disables)
	HotCacheTTL time.Duration `koanf:"hot_cache_ttl" env:"HOT_CACHE_TTL" default:"10m"`
}

// IngestConfig holds file import settings.
type IngestConfig struct {
	// MinGrade is the lowest grade the error filter keeps (default: 0)
	MinGrade float64 `koanf:"min_grade" env:"INGEST_MIN_GRADE" default:"0"`

	// MaxGrade is the highest grade the error filter keeps (default: 100)
	MaxGrade float64 `koanf:"max_grade" env:"INGEST_MAX_GRADE" default:"100"`

	// MaxUploadSize is the maximum import size in bytes (default: 100MB)
	MaxUploadSize int64 `koanf:"max_upload_size" env:"INGEST_MAX_UPLOAD_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of parallel imports (default: 2)
	MaxConcurrent int `koanf:"max_concurrent" env:"INGEST_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long an import waits for a slot (default: 30s)
	MaxWaitTime time.Duration `koanf:"max_wait_time" env:"INGEST_MAX_WAIT_TIME" default:"30s"`
}

// DatabaseConfig holds the optional import-history database settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string; empty keeps history in memory
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `koanf:"url" env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `koanf:"max_conns" env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `koanf:"min_conns" env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time" env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// HistoryLimit bounds the in-memory history (default: 100)
	HistoryLimit int `koanf:"history_limit" env:"HISTORY_LIMIT" default:"100"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `koanf:"enabled" env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `koanf:"requests_per_minute" env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// ImportLimit is requests per minute for the import endpoint (default: 10)
	ImportLimit int `koanf:"import_limit" env:"RATE_LIMIT_IMPORT" default:"10"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `koanf:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `koanf:"format" env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes collectors at Path (default: true)
	Enabled bool `koanf:"enabled" env:"METRICS_ENABLED" default:"true"`

	// Path is the exposition route (default: /metrics)
	Path string `koanf:"path" env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
