package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

// DoneMarker terminates an OpenAI-compatible stream.
var DoneMarker = []byte("[DONE]")

// OpenAIDialect reshapes text deltas and the final summary into
// chat.completion.chunk objects. Every other event is dropped. The
// fields are fixed for the life of the stream.
type OpenAIDialect struct {
	ID      string
	Model   string
	Created int64
}

var _ Dialect = (*OpenAIDialect)(nil)

// NewOpenAIDialect returns a dialect whose chunks carry a completion id
// derived from the session id.
func NewOpenAIDialect(sessionID, model string, now time.Time) *OpenAIDialect {
	return &OpenAIDialect{
		ID:      api.ChatCompletionID(sessionID),
		Model:   model,
		Created: now.Unix(),
	}
}

func (d *OpenAIDialect) Name() string { return DialectOpenAI }

func (d *OpenAIDialect) Encode(ev api.Event) ([][]byte, error) {
	switch ev.Type {
	case api.EventTextDelta:
		text := ev.Text
		return d.marshal(d.chunk(api.ChatChunkDelta{Content: &text}, nil))

	case api.EventDone:
		reason := ev.StopReason
		chunk := d.chunk(api.ChatChunkDelta{}, &reason)
		chunk.Usage = api.NewChatUsage(ev.Usage)
		chunk.ProviderSpecificFields = api.NewProviderFields(ev.ContainerID)
		frames, err := d.marshal(chunk)
		if err != nil {
			return nil, err
		}
		return append(frames, DoneMarker), nil

	case api.EventError:
		return d.marshal(api.ChatStreamError{Error: ev.Error})

	default:
		return nil, nil
	}
}

func (d *OpenAIDialect) chunk(delta api.ChatChunkDelta, finish *string) api.ChatCompletionChunk {
	return api.ChatCompletionChunk{
		ID:      d.ID,
		Object:  "chat.completion.chunk",
		Created: d.Created,
		Model:   d.Model,
		Choices: []api.ChatChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}},
	}
}

func (d *OpenAIDialect) marshal(v any) ([][]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding chat chunk: %w", err)
	}
	return [][]byte{data}, nil
}
