// Package config loads server settings from the environment and matching
// profiles from YAML. Settings are validated on startup so a bad value
// fails fast.
//
// Each section reads variables under its own prefix (SERVER_, DB_, UPLOAD_,
// RATE_LIMIT_, SECURITY_, LOG_, RETENTION_, MATCH_).
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	Database  DatabaseConfig  `envconfig:"DB"`
	Upload    UploadConfig    `envconfig:"UPLOAD"`
	Rate      RateLimitConfig `envconfig:"RATE_LIMIT"`
	Security  SecurityConfig  `envconfig:"SECURITY"`
	Logging   LoggingConfig   `envconfig:"LOG"`
	Retention RetentionConfig `envconfig:"RETENTION"`
	Matching  MatchingConfig  `envconfig:"MATCH"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `split_words:"true" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `split_words:"true" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `split_words:"true" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 2m)
	WriteTimeout time.Duration `split_words:"true" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `split_words:"true" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `split_words:"true" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 90s)
	RequestTimeout time.Duration `split_words:"true" default:"90s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string from DATABASE_URL or DB_URL.
	// Empty keeps runs in memory.
	URL string `ignored:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `split_words:"true" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `split_words:"true" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `split_words:"true" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `split_words:"true" default:"30m"`
}

// UploadConfig holds upload and run processing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 50MB)
	MaxFileSize int64 `split_words:"true" default:"52428800"`

	// MaxConcurrent is the maximum number of runs processed at once (default: 4)
	MaxConcurrent int `split_words:"true" default:"4"`

	// MaxWaitTime is how long to wait for a run slot (default: 30s)
	MaxWaitTime time.Duration `split_words:"true" default:"30s"`

	// Timeout is the maximum duration for a single run (default: 2m)
	Timeout time.Duration `split_words:"true" default:"2m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `split_words:"true" default:"true"`

	// RequestsPerMinute is the limit for read endpoints (default: 120)
	RequestsPerMinute int `split_words:"true" default:"120"`

	// UploadLimit is requests per minute for upload endpoints (default: 20)
	UploadLimit int `envconfig:"UPLOAD" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs (TRUSTED_PROXIES)
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `split_words:"true" default:"true"`

	// RequireAPIKey rejects /api requests without a configured key (default: false)
	RequireAPIKey bool `envconfig:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted X-API-Key values (API_KEYS)
	APIKeys []string `envconfig:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `split_words:"true" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `split_words:"true" default:"text"`
}

// RetentionConfig controls how long finished runs stay downloadable.
type RetentionConfig struct {
	// MaxAge is how long a run is kept (default: 24h)
	MaxAge time.Duration `split_words:"true" default:"24h"`

	// CheckInterval is how often expired runs are purged (default: 1h)
	CheckInterval time.Duration `split_words:"true" default:"1h"`

	// MemoryCapacity bounds the in-memory run store (default: 50)
	MemoryCapacity int `split_words:"true" default:"50"`
}

// MatchingConfig holds defaults for match runs.
type MatchingConfig struct {
	// ProfilePath is an optional YAML matching profile applied to web runs (MATCH_PROFILE_PATH)
	ProfilePath string `split_words:"true"`

	// WardPattern matches ICU wards for the ward-check override
	WardPattern string `split_words:"true" default:"NICU|NR|신생아"`

	// Strategy is the default join strategy: range or nearest (default: range)
	Strategy string `split_words:"true" default:"range"`

	// Variant is the default export layout: external or internal (default: external)
	Variant string `split_words:"true" default:"external"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// UseDatabase reports whether runs are kept in PostgreSQL.
func (c *DatabaseConfig) UseDatabase() bool {
	return c.URL != ""
}
