package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/debug"
	"github.com/Kenerlee/skillbridge/pkg/provider"
)

// DefaultBufferSize is the producer channel capacity when none is configured.
const DefaultBufferSize = 64

// ErrSessionCancelled is the cancellation cause used when a session is
// stopped explicitly rather than by client disconnect.
var ErrSessionCancelled = errors.New("session cancelled")

// Opener starts the upstream stream. It is called on the producer goroutine.
type Opener func(ctx context.Context) (provider.EventStream, error)

// OpenProvider returns an Opener that streams req from p.
func OpenProvider(p provider.Provider, req *provider.Request) Opener {
	return func(ctx context.Context) (provider.EventStream, error) {
		return p.Stream(ctx, req)
	}
}

// Outcome describes how a producer finished.
type Outcome struct {
	Status  api.SessionStatus
	Message *provider.Message
	// Err is the failure or cancellation cause, nil on success.
	Err     error
	FileIDs []string
	Steps   int
	// Dropped counts events discarded after the consumer went away.
	Dropped int
}

// Producer runs one upstream generation and publishes normalized events
// on a bounded channel. When the channel is full the producer blocks,
// which slows the upstream read. After Release, events are discarded
// instead so a detached producer can run to completion.
type Producer struct {
	session *Session
	open    Opener
	events  chan api.Event

	gone        chan struct{}
	releaseOnce sync.Once
	finished    chan struct{}
	outcome     Outcome
}

// NewProducer creates a producer for the session. A non-positive
// bufferSize selects DefaultBufferSize.
func NewProducer(s *Session, open Opener, bufferSize int) *Producer {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Producer{
		session:  s,
		open:     open,
		events:   make(chan api.Event, bufferSize),
		gone:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Events returns the channel the producer publishes on. It is closed
// exactly once, after the last event.
func (p *Producer) Events() <-chan api.Event {
	return p.events
}

// Start runs the producer on a new goroutine and returns its channel.
func (p *Producer) Start(ctx context.Context) <-chan api.Event {
	go p.Run(ctx)
	return p.events
}

// Release tells the producer its consumer is gone. Pending and future
// events are dropped rather than blocking.
func (p *Producer) Release() {
	p.releaseOnce.Do(func() { close(p.gone) })
}

// Wait blocks until Run has returned and reports the outcome.
func (p *Producer) Wait() Outcome {
	<-p.finished
	return p.outcome
}

// Done is closed when Run returns.
func (p *Producer) Done() <-chan struct{} {
	return p.finished
}

// Run streams from upstream until it ends, fails or ctx is cancelled.
// It publishes exactly one terminal event (done or error) to an
// attached consumer, and always closes the channel.
func (p *Producer) Run(ctx context.Context) {
	defer close(p.finished)
	defer close(p.events)
	defer func() {
		if r := recover(); r != nil {
			p.fail(ctx, fmt.Errorf("panic in stream producer: %v", r))
		}
	}()

	s, err := p.open(ctx)
	if err != nil {
		p.finish(ctx, err)
		return
	}
	defer s.Close()

	for s.Next() {
		if ctx.Err() != nil {
			p.cancelled(ctx)
			return
		}
		for _, ev := range Normalize(p.session, s.Current()) {
			if !p.emit(ctx, ev) {
				p.cancelled(ctx)
				return
			}
			if ev.Type == api.EventError {
				p.setOutcome(api.SessionFailed, s.Message(), errors.New(ev.Error))
				return
			}
		}
	}
	if err := s.Err(); err != nil {
		p.finish(ctx, err)
		return
	}

	msg := s.Message()
	for _, block := range msg.Content {
		p.session.Artifacts.ScanBlock(block)
	}
	done := api.Event{
		Type:        api.EventDone,
		ContainerID: msg.ContainerID,
		StopReason:  msg.StopReason,
		Usage:       msg.Usage,
		FileIDs:     p.session.Artifacts.IDs(),
	}
	if !p.emit(ctx, done) {
		p.cancelled(ctx)
		return
	}
	p.setOutcome(api.SessionCompleted, msg, nil)
	debug.Log("stream", "producer finished", "session", p.session.ID,
		"steps", p.session.Steps.Total(), "files", p.session.Artifacts.Len(), "dropped", p.outcome.Dropped)
}

// finish routes a stream failure to cancellation or to an error event.
func (p *Producer) finish(ctx context.Context, err error) {
	if ctx.Err() != nil {
		p.cancelled(ctx)
		return
	}
	p.fail(ctx, err)
}

func (p *Producer) fail(ctx context.Context, err error) {
	debug.Log("stream", "producer failed", "session", p.session.ID, "error", err)
	p.deliver(api.NewErrorEvent(ErrorMessage(err)))
	p.setOutcome(api.SessionFailed, nil, err)
}

// cancelled records cancellation. A still-attached consumer gets the
// error event as its terminal event.
func (p *Producer) cancelled(ctx context.Context) {
	cause := context.Cause(ctx)
	p.deliver(api.NewErrorEvent(ErrorMessage(cause)))
	p.setOutcome(api.SessionCancelled, nil, cause)
	debug.Log("stream", "producer cancelled", "session", p.session.ID, "cause", cause)
}

// emit publishes ev, blocking while the channel is full. It returns
// false when ctx is cancelled first. Events for a released consumer are
// counted and dropped.
func (p *Producer) emit(ctx context.Context, ev api.Event) bool {
	select {
	case <-p.gone:
		p.outcome.Dropped++
		return true
	default:
	}
	select {
	case p.events <- ev:
		return true
	case <-p.gone:
		p.outcome.Dropped++
		return true
	case <-ctx.Done():
		return false
	}
}

// deliver publishes a terminal event regardless of cancellation. It
// blocks until the consumer takes it or is released.
func (p *Producer) deliver(ev api.Event) {
	select {
	case p.events <- ev:
	case <-p.gone:
		p.outcome.Dropped++
	}
}

func (p *Producer) setOutcome(status api.SessionStatus, msg *provider.Message, err error) {
	p.outcome.Status = status
	p.outcome.Message = msg
	p.outcome.Err = err
	p.outcome.FileIDs = p.session.Artifacts.IDs()
	p.outcome.Steps = p.session.Steps.Total()
}

// ErrorMessage formats err for an error event. Upstream API errors keep
// their "Anthropic API Error:" message; anything else is reported as an
// internal error.
func ErrorMessage(err error) string {
	if err == nil {
		return api.InternalErrorPrefix + "unknown error"
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Type == api.ErrorTypeUpstreamError {
		return apiErr.Message
	}
	return api.InternalErrorPrefix + err.Error()
}
