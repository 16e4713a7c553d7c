// Package config loads service settings from defaults, an optional YAML file
// and environment variables, in that order, and validates the result on
// startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Database DatabaseConfig  `yaml:"database"`
	Upload   UploadConfig    `yaml:"upload"`
	Rate     RateLimitConfig `yaml:"rate"`
	Security SecurityConfig  `yaml:"security"`
	Logging  LoggingConfig   `yaml:"logging"`
	Search   SearchConfig    `yaml:"search"`
	Sample   SampleConfig    `yaml:"sample"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `yaml:"port" env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 2m)
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-import requests (default: 30s)
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Dialect selects the store: postgres or sqlite (default: postgres)
	Dialect string `yaml:"dialect" env:"DB_DIALECT" default:"postgres"`

	// URL is the connection string, or the file path for sqlite (required).
	// Supports both DATABASE_URL and DB_URL env vars.
	URL string `yaml:"url" env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of pooled connections (default: 20)
	MaxConns int `yaml:"max_conns" env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `yaml:"min_conns" env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UploadConfig holds import file settings.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted upload in bytes (default: 50MB)
	MaxFileSize int64 `yaml:"max_file_size" env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// TempDir is where uploads are spooled before parsing (default: OS temp dir)
	TempDir string `yaml:"temp_dir" env:"UPLOAD_TEMP_DIR"`

	// MaxConcurrent is the maximum number of parallel imports (default: 2)
	MaxConcurrent int `yaml:"max_concurrent" env:"UPLOAD_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `yaml:"max_wait_time" env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single import (default: 10m)
	Timeout time.Duration `yaml:"timeout" env:"UPLOAD_TIMEOUT" default:"10m"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `yaml:"requests_per_minute" env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// UploadLimit is requests per minute for import endpoints (default: 10)
	UploadLimit int `yaml:"upload_limit" env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey protects mutating endpoints with X-API-Key (default: true)
	RequireAPIKey bool `yaml:"require_api_key" env:"REQUIRE_API_KEY" default:"true"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `yaml:"api_keys" env:"API_KEYS"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"LOG_FORMAT" default:"text"`
}

// SearchConfig tunes fuzzy model-name search.
type SearchConfig struct {
	// Threshold is the highest accepted score, 0 exact to 1 anything (default: 0.2)
	Threshold float64 `yaml:"threshold" env:"SEARCH_THRESHOLD" default:"0.2"`

	// Distance scales the penalty for matches far from the start (default: 100)
	Distance int `yaml:"distance" env:"SEARCH_DISTANCE" default:"100"`

	// MinQueryLength is the shortest ranked query in characters (default: 3)
	MinQueryLength int `yaml:"min_query_length" env:"SEARCH_MIN_QUERY_LENGTH" default:"3"`

	// DefaultLimit is the number of hits when none is requested (default: 5)
	DefaultLimit int `yaml:"default_limit" env:"SEARCH_DEFAULT_LIMIT" default:"5"`

	// MaxLimit caps the requested number of hits (default: 50)
	MaxLimit int `yaml:"max_limit" env:"SEARCH_MAX_LIMIT" default:"50"`

	// RefreshInterval rebuilds the index periodically; 0 disables (default: 5m)
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"SEARCH_REFRESH_INTERVAL" default:"5m"`
}

// SampleConfig tunes random sampling.
type SampleConfig struct {
	// DefaultSize is used when no size is requested (default: 8)
	DefaultSize int `yaml:"default_size" env:"SAMPLE_DEFAULT_SIZE" default:"8"`

	// MaxSize caps the requested size (default: 100)
	MaxSize int `yaml:"max_size" env:"SAMPLE_MAX_SIZE" default:"100"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
