package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// upstream.api_key is required unless callers bring their own key.
	if c.Upstream.APIKey == "" && c.Auth.Type != "passthrough" {
		errs = append(errs, fmt.Errorf("upstream.api_key is required (set ANTHROPIC_API_KEY) unless auth.type is \"passthrough\""))
	}
	if c.Upstream.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("upstream.max_retries must be >= 0, got %d", c.Upstream.MaxRetries))
	}

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}

	if c.Stream.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("stream.buffer_size must be > 0, got %d", c.Stream.BufferSize))
	}
	if c.Stream.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("stream.poll_interval must be > 0, got %v", c.Stream.PollInterval))
	}
	if c.Stream.HeartbeatInterval < c.Stream.PollInterval {
		errs = append(errs, fmt.Errorf("stream.heartbeat_interval must be >= stream.poll_interval, got %v", c.Stream.HeartbeatInterval))
	}

	for i, s := range c.Skills {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("skills[%d].id is required", i))
		}
		switch s.Type {
		case "", "anthropic", "custom":
			// valid
		default:
			errs = append(errs, fmt.Errorf("skills[%d].type must be \"anthropic\" or \"custom\", got %q", i, s.Type))
		}
	}

	switch c.Storage.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	switch c.Auth.Type {
	case "none", "passthrough":
		// valid
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, fmt.Errorf("auth.api_keys must not be empty when auth.type is \"apikey\""))
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" && k.KeyFile == "" {
				errs = append(errs, fmt.Errorf("auth.api_keys[%d]: key or key_file is required", i))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"passthrough\", got %q", c.Auth.Type))
	}
	if c.Auth.RateLimit.RequestsPerSecond < 0 || c.Auth.RateLimit.FileMetadataRequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("auth.rate_limit rates must be >= 0"))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
