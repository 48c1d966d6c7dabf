package anthropic

import "time"

// DefaultModel is used when a request does not name a model.
const DefaultModel = "claude-sonnet-4-5-20250929"

// Config holds configuration for the Anthropic provider adapter.
type Config struct {
	// APIKey authenticates against the Messages API. A request may
	// override it (see provider.Request.APIKey).
	APIKey string

	// BaseURL overrides the API endpoint (e.g., a local mock upstream).
	BaseURL string

	// Timeout bounds non-streaming calls. Streams are bounded by the
	// caller's context only, since a skill run can take minutes.
	Timeout time.Duration

	// MaxRetries for transient failures before any event is received.
	MaxRetries int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:     apiKey,
		Timeout:    300 * time.Second,
		MaxRetries: 2,
	}
}
