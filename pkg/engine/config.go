package engine

import (
	"time"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/stream"
)

// DefaultModel is the upstream model used for skill invocations and for
// chat requests that omit the model.
const DefaultModel = "claude-sonnet-4-5-20250929"

// Config holds configuration for the core engine.
type Config struct {
	// Model is the upstream model for skill invocations. Empty selects
	// DefaultModel.
	Model string

	// BufferSize is the capacity of each session's event channel.
	BufferSize int

	// PollInterval and HeartbeatInterval tune the SSE bridge. Zero
	// selects the stream package defaults (1s and 15s).
	PollInterval      time.Duration
	HeartbeatInterval time.Duration

	// DetachOnDisconnect lets a session keep running upstream after its
	// client disconnects, so its summary is still recorded.
	DetachOnDisconnect bool

	// Validation bounds inbound requests.
	Validation api.ValidationConfig
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Model:             DefaultModel,
		BufferSize:        stream.DefaultBufferSize,
		PollInterval:      stream.DefaultPollInterval,
		HeartbeatInterval: stream.DefaultHeartbeatInterval,
		Validation:        api.DefaultValidationConfig(),
	}
}

func (c Config) model() string {
	if c.Model == "" {
		return DefaultModel
	}
	return c.Model
}
