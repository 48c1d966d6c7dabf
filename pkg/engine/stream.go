package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/debug"
	"github.com/Kenerlee/skillbridge/pkg/observability"
	"github.com/Kenerlee/skillbridge/pkg/provider"
	"github.com/Kenerlee/skillbridge/pkg/stream"
	"github.com/Kenerlee/skillbridge/pkg/transport"
)

// errClientGone is the cancellation cause when the client disconnects
// before the session ends.
var errClientGone = errors.New("client disconnected")

// runStream runs one streaming session: a producer goroutine reads
// upstream while the bridge forwards its events to w on the calling
// goroutine. It returns once the bridge stops; a detached session may
// keep running upstream after that and records its summary when done.
func (e *Engine) runStream(ctx context.Context, dialect stream.Dialect, summary *api.SessionSummary, req *provider.Request, w transport.ResponseWriter) error {
	parent := ctx
	if e.cfg.DetachOnDisconnect {
		parent = context.WithoutCancel(ctx)
	}
	pctx, cancel := context.WithCancelCause(parent)
	e.inflight.Register(summary.ID, cancel)

	if err := w.BeginStream(summary.ID); err != nil {
		e.inflight.Remove(summary.ID)
		cancel(err)
		return err
	}

	session := stream.NewSession(summary.ID)
	producer := stream.NewProducer(session, e.opener(req), e.cfg.BufferSize)
	observability.SessionsActive.WithLabelValues(summary.Dialect).Inc()
	start := e.now()
	events := producer.Start(pctx)

	bridge := stream.NewBridge(dialect)
	if e.cfg.PollInterval > 0 {
		bridge.PollInterval = e.cfg.PollInterval
	}
	if e.cfg.HeartbeatInterval > 0 {
		bridge.HeartbeatInterval = e.cfg.HeartbeatInterval
	}
	sum, bridgeErr := bridge.Run(ctx, events, w)
	producer.Release()
	observability.RecordStream(summary.Dialect, sum.ByType, sum.Heartbeats)

	finish := func() {
		out := producer.Wait()
		cancel(nil)
		e.inflight.Remove(summary.ID)
		observability.SessionsActive.WithLabelValues(summary.Dialect).Dec()
		applyOutcome(summary, out)
		if out.Dropped > 0 {
			debug.Log("stream", "events dropped after disconnect", "session", summary.ID, "dropped", out.Dropped)
		}
		e.finishSession(ctx, summary, start)
	}

	if sum.Terminal == nil {
		if e.cfg.DetachOnDisconnect {
			slog.Info("client gone, session continues upstream", "session", summary.ID)
			go finish()
			return bridgeErr
		}
		cancel(errClientGone)
	}
	finish()
	return bridgeErr
}

// opener opens the upstream stream and records the request outcome.
func (e *Engine) opener(req *provider.Request) stream.Opener {
	open := stream.OpenProvider(e.provider, req)
	return func(ctx context.Context) (provider.EventStream, error) {
		s, err := open(ctx)
		status := "success"
		if err != nil {
			status = "error"
		}
		observability.UpstreamRequestsTotal.WithLabelValues(req.Model, status).Inc()
		return s, err
	}
}

// applyOutcome copies a producer outcome into the session summary.
func applyOutcome(s *api.SessionSummary, out stream.Outcome) {
	s.Status = out.Status
	s.FileIDs = out.FileIDs
	s.Steps = out.Steps
	if out.Message != nil {
		s.ContainerID = out.Message.ContainerID
		s.StopReason = out.Message.StopReason
		s.Usage = out.Message.Usage
	}
	if out.Err != nil {
		s.Error = stream.ErrorMessage(out.Err)
	}
}
