package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/provider"
)

func rawEvent(typ provider.EventType, index int, body string) provider.Event {
	return provider.Event{Type: typ, Index: index, Raw: []byte(body)}
}

func messageStart() provider.Event {
	return rawEvent(provider.EventMessageStart, 0,
		`{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"usage":{"input_tokens":10,"output_tokens":1}}}`)
}

func messageDelta() provider.Event {
	return rawEvent(provider.EventMessageDelta, 0,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":20}}`)
}

func messageStop() provider.Event {
	return rawEvent(provider.EventMessageStop, 0, `{"type":"message_stop"}`)
}

func blockStart(index int, block string) provider.Event {
	return rawEvent(provider.EventContentBlockStart, index,
		fmt.Sprintf(`{"type":"content_block_start","index":%d,"content_block":%s}`, index, block))
}

func blockStop(index int) provider.Event {
	return rawEvent(provider.EventContentBlockStop, index, fmt.Sprintf(`{"type":"content_block_stop","index":%d}`, index))
}

func deltaEvent(index int, delta map[string]string) provider.Event {
	d, _ := json.Marshal(delta)
	return rawEvent(provider.EventContentBlockDelta, index,
		fmt.Sprintf(`{"type":"content_block_delta","index":%d,"delta":%s}`, index, d))
}

func textDelta(index int, text string) provider.Event {
	return deltaEvent(index, map[string]string{"type": "text_delta", "text": text})
}

func inputDelta(index int, partial string) provider.Event {
	return deltaEvent(index, map[string]string{"type": "input_json_delta", "partial_json": partial})
}

const textBlock = `{"type":"text","text":""}`

func toolUseBlock(typ, id, name string) string {
	return fmt.Sprintf(`{"type":%q,"id":%q,"name":%q,"input":{}}`, typ, id, name)
}

func bashResultBlock(toolUseID, stdout string, fileIDs ...string) string {
	items := make([]string, 0, len(fileIDs))
	for _, id := range fileIDs {
		items = append(items, fmt.Sprintf(`{"type":"bash_code_execution_output","file_id":%q}`, id))
	}
	return fmt.Sprintf(`{"type":"bash_code_execution_tool_result","tool_use_id":%q,"content":{"type":"bash_code_execution_result","stdout":%q,"stderr":"","return_code":0,"content":[%s]}}`,
		toolUseID, stdout, strings.Join(items, ","))
}

// fakeStream replays events, optionally pausing before some of them.
// Pauses honour the context the stream was opened with.
type fakeStream struct {
	ctx    context.Context
	events []provider.Event
	pauses map[int]time.Duration
	err    error
	msg    *provider.Message

	pos    int
	cur    provider.Event
	failed error

	mu     sync.Mutex
	closed bool
}

func (f *fakeStream) Next() bool {
	if f.failed != nil || f.pos >= len(f.events) {
		if f.failed == nil && f.err != nil {
			f.failed = f.err
		}
		return false
	}
	if d, ok := f.pauses[f.pos]; ok {
		select {
		case <-time.After(d):
		case <-f.ctx.Done():
			f.failed = f.ctx.Err()
			return false
		}
	}
	f.cur = f.events[f.pos]
	f.pos++
	return true
}

func (f *fakeStream) Current() provider.Event { return f.cur }
func (f *fakeStream) Err() error              { return f.failed }

func (f *fakeStream) Message() *provider.Message {
	if f.msg == nil {
		return &provider.Message{}
	}
	return f.msg
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStream) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeStream) opener() Opener {
	return func(ctx context.Context) (provider.EventStream, error) {
		f.ctx = ctx
		return f, nil
	}
}

func normalizeAll(s *Session, events []provider.Event) []api.Event {
	var out []api.Event
	for _, ev := range events {
		out = append(out, Normalize(s, ev)...)
	}
	return out
}

func collect(ch <-chan api.Event) []api.Event {
	var out []api.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func countType(events []api.Event, typ api.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func eventTypes(events []api.Event) []api.EventType {
	out := make([]api.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

// frame is one SSE frame captured by recordSink.
type frame struct {
	comment bool
	payload string
}

type recordSink struct {
	mu     sync.Mutex
	frames []frame
	err    error
}

func (r *recordSink) WriteData(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, frame{payload: string(payload)})
	return nil
}

func (r *recordSink) WriteComment(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, frame{comment: true, payload: text})
	return nil
}

func (r *recordSink) snapshot() []frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]frame, len(r.frames))
	copy(out, r.frames)
	return out
}
