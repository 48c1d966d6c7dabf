package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/debug"
)

// Bridge defaults.
const (
	DefaultPollInterval      = time.Second
	DefaultHeartbeatInterval = 15 * time.Second
)

// Sink receives SSE frames. Each call writes one complete frame and
// flushes it.
type Sink interface {
	// WriteData writes "data: <payload>\n\n".
	WriteData(payload []byte) error
	// WriteComment writes ": <text>\n\n".
	WriteComment(text string) error
}

// Bridge drains a producer channel into a Sink, injecting keepalive
// comments while no event arrives.
type Bridge struct {
	Dialect           Dialect
	PollInterval      time.Duration
	HeartbeatInterval time.Duration

	// Now is the clock; tests replace it. Defaults to time.Now.
	Now func() time.Time
}

// NewBridge returns a bridge with default intervals.
func NewBridge(d Dialect) *Bridge {
	return &Bridge{
		Dialect:           d,
		PollInterval:      DefaultPollInterval,
		HeartbeatInterval: DefaultHeartbeatInterval,
	}
}

// Summary reports what a bridge run forwarded.
type Summary struct {
	Events     int
	Heartbeats int
	// ByType counts forwarded events per normalized type, including
	// events the dialect dropped.
	ByType map[api.EventType]int
	// Terminal is the done or error event that ended the run, if any.
	Terminal *api.Event
}

// Run forwards events until a terminal event is written, the channel is
// closed, ctx is done or the sink fails. It returns the sink or encoding
// error, or ctx.Err() on cancellation.
func (b *Bridge) Run(ctx context.Context, events <-chan api.Event, sink Sink) (Summary, error) {
	sum := Summary{ByType: make(map[api.EventType]int)}
	now := b.Now
	if now == nil {
		now = time.Now
	}
	poll := b.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	heartbeat := b.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	lastWrite := now()

	for {
		select {
		case <-ctx.Done():
			debug.Log("stream", "bridge stopped by context", "dialect", b.Dialect.Name(), "events", sum.Events)
			return sum, ctx.Err()

		case ev, ok := <-events:
			if !ok {
				return sum, nil
			}
			sum.ByType[ev.Type]++
			frames, err := b.Dialect.Encode(ev)
			if err != nil {
				return sum, err
			}
			for _, f := range frames {
				if err := sink.WriteData(f); err != nil {
					return sum, fmt.Errorf("writing %s event: %w", ev.Type, err)
				}
			}
			if len(frames) > 0 {
				sum.Events++
				lastWrite = now()
			}
			if ev.Terminal() {
				sum.Terminal = &ev
				return sum, nil
			}

		case <-ticker.C:
			t := now()
			if t.Sub(lastWrite) < heartbeat {
				continue
			}
			if err := sink.WriteComment(fmt.Sprintf("keepalive %d", t.Unix())); err != nil {
				return sum, fmt.Errorf("writing keepalive: %w", err)
			}
			sum.Heartbeats++
			lastWrite = t
			debug.Trace("stream", "keepalive sent", "dialect", b.Dialect.Name())
		}
	}
}
