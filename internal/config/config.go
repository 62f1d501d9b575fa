// Package config loads application settings from the environment and an
// optional config file, applies defaults and validates everything on
// startup so misconfiguration fails fast.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Every setting can be provided as an environment variable.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	List     ListConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Archive  ArchiveConfig
	Redis    RedisConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including draining imports (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxBodySize caps JSON request bodies in bytes (default: 1MB)
	MaxBodySize int64 `env:"SERVER_MAX_BODY_SIZE" default:"1048576"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. When empty the server keeps
	// buyers in memory, which is only suitable for development.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies pending migrations on startup (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// MaxRows is the largest number of data rows one file may hold (default: 200)
	MaxRows int `env:"IMPORT_MAX_ROWS" default:"200"`

	// MaxFileSize is the maximum upload size in bytes (default: 5MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"5242880"`

	// MaxConcurrent is the number of imports processed at once (default: 5)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long an import waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single import including its transaction (default: 2m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"2m"`
}

// ListConfig holds list view settings.
type ListConfig struct {
	PageSize int `env:"LIST_PAGE_SIZE" default:"10"`
}

// RateLimitConfig holds per-client rate limits.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default limit per client IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is the per-minute limit on import endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAuth rejects /api requests without a valid bearer token.
	// When false, the X-Actor-ID header names the actor (development only).
	RequireAuth bool `env:"REQUIRE_AUTH" default:"true"`

	// JWTSecret is the HS256 signing key for bearer tokens
	JWTSecret string `env:"JWT_SECRET"`

	// JWTIssuer is the expected "iss" claim (default: leadbook)
	JWTIssuer string `env:"JWT_ISSUER" default:"leadbook"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ArchiveConfig holds export archive settings. Archiving is disabled
// unless Bucket is set.
type ArchiveConfig struct {
	Bucket string `env:"ARCHIVE_S3_BUCKET"`
	Prefix string `env:"ARCHIVE_S3_PREFIX"`
	Region string `env:"ARCHIVE_S3_REGION" envAlt:"AWS_REGION" default:"us-east-1"`

	// Endpoint overrides the S3 endpoint for MinIO and other compatible stores
	Endpoint     string `env:"ARCHIVE_S3_ENDPOINT"`
	UsePathStyle bool   `env:"ARCHIVE_S3_PATH_STYLE" default:"false"`

	// Static credentials. When empty the default AWS credential chain is used.
	AccessKeyID     string `env:"ARCHIVE_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"ARCHIVE_S3_SECRET_ACCESS_KEY"`
}

// Enabled reports whether exports can be archived.
func (c *ArchiveConfig) Enabled() bool {
	return c.Bucket != ""
}

// RedisConfig holds the optional Redis connection used for shared rate
// limiting across instances.
type RedisConfig struct {
	URL       string `env:"REDIS_URL"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" default:"leadbook:ratelimit:"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
