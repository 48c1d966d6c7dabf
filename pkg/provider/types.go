package provider

import (
	"encoding/json"
	"strings"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/tidwall/gjson"
)

// Beta feature flags sent with upstream requests.
const (
	BetaCodeExecution = "code-execution-2025-08-25"
	BetaSkills        = "skills-2025-10-02"
	BetaFilesAPI      = "files-api-2025-04-14"
)

// SkillBetas returns the betas needed for a request that loads skills.
func SkillBetas() []string {
	return []string{BetaCodeExecution, BetaSkills, BetaFilesAPI}
}

// Request is the upstream-facing request, stripped of transport concerns.
type Request struct {
	Model     string
	MaxTokens int
	System    string
	Messages  []Turn

	// ContainerID reuses an existing upstream container.
	ContainerID string
	Skills      []api.SkillSpec

	// CodeExecution attaches the code execution tool.
	CodeExecution bool
	// Tools are caller-supplied tool definitions forwarded verbatim.
	Tools []json.RawMessage
	Betas []string

	// APIKey overrides the provider's configured key for this request.
	APIKey string
}

// Turn is one conversation message.
type Turn struct {
	Role    string
	Content string
}

// EventType identifies a raw upstream stream event.
type EventType string

const (
	EventMessageStart      EventType = "message_start"
	EventMessageDelta      EventType = "message_delta"
	EventMessageStop       EventType = "message_stop"
	EventContentBlockStart EventType = "content_block_start"
	EventContentBlockDelta EventType = "content_block_delta"
	EventContentBlockStop  EventType = "content_block_stop"
	EventPing              EventType = "ping"
	EventError             EventType = "error"
)

// Event is one raw upstream stream event. Raw holds the event's complete
// JSON as received; block and delta shapes are read from it by path.
type Event struct {
	Type  EventType
	Index int
	Raw   []byte
}

// Get reads a gjson path from the raw event.
func (e Event) Get(path string) gjson.Result {
	return gjson.GetBytes(e.Raw, path)
}

// Message is the complete upstream message after a generation finishes.
type Message struct {
	ID          string
	Model       string
	ContainerID string
	StopReason  string
	Usage       api.Usage

	// Content holds each content block's JSON, in block order.
	Content []json.RawMessage
}

// Text concatenates the text of all text blocks.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	for _, block := range m.Content {
		if gjson.GetBytes(block, "type").String() == "text" {
			b.WriteString(gjson.GetBytes(block, "text").String())
		}
	}
	return b.String()
}
