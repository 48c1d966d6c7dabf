// Package config provides unified configuration for the skillbridge gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. .env and .env.local files (never overriding the process environment)
//  4. Environment variable overrides (SKILLBRIDGE_ prefix, ANTHROPIC_API_KEY)
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import "time"

// Config holds all configuration for the skillbridge gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Stream        StreamConfig        `yaml:"stream"`
	Skills        []SkillConfig       `yaml:"skills"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8000
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 0 (streams are unbounded)
	MaxBodySize  int64         `yaml:"max_body_size"` // default: 10 MB
	CORSOrigins  []string      `yaml:"cors_origins"`
}

// UpstreamConfig holds Anthropic API settings.
type UpstreamConfig struct {
	APIKey     string        `yaml:"api_key"`
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	BaseURL    string        `yaml:"base_url"`     // optional, e.g. a mock upstream
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`     // default: 300s
	MaxRetries int           `yaml:"max_retries"` // default: 2
}

// StreamConfig tunes per-session streaming.
type StreamConfig struct {
	BufferSize         int           `yaml:"buffer_size"`        // default: 100
	PollInterval       time.Duration `yaml:"poll_interval"`      // default: 1s
	HeartbeatInterval  time.Duration `yaml:"heartbeat_interval"` // default: 15s
	DetachOnDisconnect bool          `yaml:"detach_on_disconnect"`
}

// SkillConfig describes a skill appended to the built-in allow-list.
type SkillConfig struct {
	ID          string `yaml:"id"`
	Type        string `yaml:"type"` // "anthropic" or "custom", default: "custom"
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// StorageConfig holds session ledger settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "memory" or "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthConfig holds authentication and rate limiting settings.
type AuthConfig struct {
	Type            string          `yaml:"type"`     // "none", "apikey" or "passthrough", default: "none"
	APIKeys         []APIKeyConfig  `yaml:"api_keys"` // API key entries for type=apikey
	BypassEndpoints []string        `yaml:"bypass_endpoints"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key"`
	KeyFile     string `yaml:"key_file"` // _file variant for key
	Subject     string `yaml:"subject"`
	TenantID    string `yaml:"tenant_id"`
	ServiceTier string `yaml:"service_tier"`
}

// RateLimitConfig sets the token bucket rates. A rate of zero disables
// limiting for that tier.
type RateLimitConfig struct {
	RequestsPerSecond             float64 `yaml:"requests_per_second"` // default: 5
	Burst                         int     `yaml:"burst"`               // default: 5
	FileMetadataRequestsPerSecond float64 `yaml:"file_metadata_requests_per_second"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn" or "error", default: "info"
	Format string `yaml:"format"` // "text" or "json", default: "text"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8000,
			ReadTimeout: 30 * time.Second,
			MaxBodySize: 10 << 20,
			CORSOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		},
		Upstream: UpstreamConfig{
			Model:      "claude-sonnet-4-5-20250929",
			Timeout:    300 * time.Second,
			MaxRetries: 2,
		},
		Stream: StreamConfig{
			BufferSize:        100,
			PollInterval:      time.Second,
			HeartbeatInterval: 15 * time.Second,
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Auth: AuthConfig{
			Type:            "none",
			BypassEndpoints: []string{"/health", "/healthz", "/metrics"},
			RateLimit: RateLimitConfig{
				RequestsPerSecond:             5,
				Burst:                         5,
				FileMetadataRequestsPerSecond: 10,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
