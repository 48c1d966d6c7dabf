package anthropic

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/debug"
	"github.com/Kenerlee/skillbridge/pkg/provider"
)

// eventStream adapts the SDK's SSE stream to provider.EventStream. It
// accumulates the message with the SDK and keeps each content block's
// start JSON as a fallback for the final message.
type eventStream struct {
	stream *ssestream.Stream[anthropic.BetaRawMessageStreamEventUnion]
	acc    anthropic.BetaMessage
	cur    provider.Event
	err    error

	blocks map[int]json.RawMessage
	texts  map[int]*strings.Builder
}

func newEventStream(s *ssestream.Stream[anthropic.BetaRawMessageStreamEventUnion]) *eventStream {
	return &eventStream{
		stream: s,
		blocks: make(map[int]json.RawMessage),
		texts:  make(map[int]*strings.Builder),
	}
}

func (s *eventStream) Next() bool {
	if s.err != nil {
		return false
	}
	if !s.stream.Next() {
		if err := s.stream.Err(); err != nil {
			s.err = mapError(err)
		}
		return false
	}

	ev := s.stream.Current()
	if err := s.acc.Accumulate(ev); err != nil {
		debug.Log("upstream", "accumulate failed", "type", ev.Type, "error", err)
	}

	index := int(ev.Index)
	switch ev.Type {
	case string(provider.EventContentBlockStart):
		s.blocks[index] = json.RawMessage(ev.ContentBlock.RawJSON())
		if ev.ContentBlock.Type == "text" {
			s.texts[index] = &strings.Builder{}
		}
	case string(provider.EventContentBlockDelta):
		if b, ok := s.texts[index]; ok && ev.Delta.Type == "text_delta" {
			b.WriteString(ev.Delta.Text)
		}
	case string(provider.EventMessageDelta):
		// Container details arrive with the message delta when skills ran.
		if ev.Delta.Container.ID != "" {
			s.acc.Container = ev.Delta.Container
		}
	}

	s.cur = provider.Event{
		Type:  provider.EventType(ev.Type),
		Index: index,
		Raw:   []byte(ev.RawJSON()),
	}
	debug.Trace("upstream", "event", "type", ev.Type, "index", index)
	return true
}

func (s *eventStream) Current() provider.Event {
	return s.cur
}

func (s *eventStream) Err() error {
	return s.err
}

// Message returns the message accumulated so far. Content comes from
// the SDK accumulator, which has applied every delta; blocks it could
// not decode fall back to their start JSON, with text blocks carrying
// their concatenated deltas.
func (s *eventStream) Message() *provider.Message {
	msg := &provider.Message{
		ID:          s.acc.ID,
		Model:       string(s.acc.Model),
		ContainerID: s.acc.Container.ID,
		StopReason:  string(s.acc.StopReason),
		Usage: api.Usage{
			InputTokens:  s.acc.Usage.InputTokens,
			OutputTokens: s.acc.Usage.OutputTokens,
		},
	}

	indexes := make([]int, 0, len(s.blocks))
	for i := range s.blocks {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	// The accumulator appends blocks in arrival order, which is index order.
	for pos := 0; pos < max(len(s.acc.Content), len(indexes)); pos++ {
		if pos < len(s.acc.Content) {
			if raw := accumulatedBlock(s.acc.Content[pos]); raw != nil {
				msg.Content = append(msg.Content, raw)
				continue
			}
		}
		if pos < len(indexes) {
			msg.Content = append(msg.Content, s.startBlock(indexes[pos]))
		}
	}
	return msg
}

// accumulatedBlock returns the accumulator's JSON for a block, or nil
// when it has none usable.
func accumulatedBlock(b anthropic.BetaContentBlockUnion) json.RawMessage {
	if b.Type == "text" {
		raw, _ := json.Marshal(map[string]string{"type": "text", "text": b.Text})
		return raw
	}
	raw := b.RawJSON()
	if raw == "" || !json.Valid([]byte(raw)) {
		return nil
	}
	return json.RawMessage(raw)
}

// startBlock returns the start JSON of the block at index, with text
// blocks rebuilt from their deltas.
func (s *eventStream) startBlock(index int) json.RawMessage {
	if b, ok := s.texts[index]; ok {
		raw, _ := json.Marshal(map[string]string{"type": "text", "text": b.String()})
		return raw
	}
	return s.blocks[index]
}

func (s *eventStream) Close() error {
	return s.stream.Close()
}
