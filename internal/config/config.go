// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Backend   BackendConfig
	Grid      GridConfig
	Messaging MessagingConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-streaming requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Optional when BACKEND_URL is set.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate creates the elements table on startup (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// BackendConfig holds settings for a remote backend data port.
// When URL is empty the grid reads and writes the local database directly.
type BackendConfig struct {
	// URL is the base URL of the remote data port
	URL string `env:"BACKEND_URL"`

	// APIKey is sent as X-API-Key on every backend request
	APIKey string `env:"BACKEND_API_KEY"`

	// Timeout bounds a single HTTP request (default: 30s)
	Timeout time.Duration `env:"BACKEND_TIMEOUT" default:"30s"`

	// PullTimeout bounds a whole pull, across disciplines (default: 2m)
	PullTimeout time.Duration `env:"BACKEND_PULL_TIMEOUT" default:"2m"`

	// PushTimeout bounds a whole push (default: 2m)
	PushTimeout time.Duration `env:"BACKEND_PUSH_TIMEOUT" default:"2m"`

	// MaxConcurrentPulls limits parallel per-discipline pulls (default: 4)
	MaxConcurrentPulls int `env:"BACKEND_MAX_CONCURRENT_PULLS" default:"4"`

	// MaxConcurrentSyncs limits pulls and pushes in flight across sessions (default: 4)
	MaxConcurrentSyncs int `env:"BACKEND_MAX_CONCURRENT_SYNCS" default:"4"`

	// SyncWaitTime is how long a transfer waits for a free slot (default: 30s)
	SyncWaitTime time.Duration `env:"BACKEND_SYNC_WAIT_TIME" default:"30s"`
}

// GridConfig holds defaults for new grid sessions.
type GridConfig struct {
	// PageSize is the number of flattened rows per page (default: 250)
	PageSize int `env:"GRID_PAGE_SIZE" default:"250"`

	// GroupByCode nests code groups under disciplines (default: false)
	GroupByCode bool `env:"GRID_GROUP_BY_CODE" default:"false"`

	// Alphabetical sorts groups by label instead of first appearance (default: false)
	Alphabetical bool `env:"GRID_ALPHABETICAL" default:"false"`

	// Locale is the BCP 47 tag used to compare group labels (default: en)
	Locale string `env:"GRID_LOCALE" default:"en"`

	// CacheTTL is how long a rendered view stays memoized (default: 5m)
	CacheTTL time.Duration `env:"GRID_CACHE_TTL" default:"5m"`

	// SessionTTL closes sessions idle for longer than this (default: 1h)
	SessionTTL time.Duration `env:"GRID_SESSION_TTL" default:"1h"`

	// JanitorInterval is how often idle sessions are checked (default: 5m)
	JanitorInterval time.Duration `env:"GRID_JANITOR_INTERVAL" default:"5m"`
}

// MessagingConfig holds change notification settings.
type MessagingConfig struct {
	// URL is the AMQP broker URL. Notifications are disabled when empty.
	URL string `env:"AMQP_URL" envAlt:"RABBIT_HOST"`

	// Exchange is the topic exchange change events are published to (default: element_grid)
	Exchange string `env:"AMQP_EXCHANGE" default:"element_grid"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// SyncLimit is requests per minute for pull and push endpoints (default: 10)
	SyncLimit int `env:"RATE_LIMIT_SYNC" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects the API with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes the metrics endpoint (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`

	// Path is where metrics are served (default: /metrics)
	Path string `env:"METRICS_PATH" default:"/metrics"`
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
