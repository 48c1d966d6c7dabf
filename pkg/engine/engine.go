package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/auth"
	"github.com/Kenerlee/skillbridge/pkg/debug"
	"github.com/Kenerlee/skillbridge/pkg/observability"
	"github.com/Kenerlee/skillbridge/pkg/provider"
	"github.com/Kenerlee/skillbridge/pkg/skills"
	"github.com/Kenerlee/skillbridge/pkg/stream"
	"github.com/Kenerlee/skillbridge/pkg/transport"
)

// Engine orchestrates request processing between the transport layer
// and the upstream provider. It implements transport.Service.
type Engine struct {
	provider provider.Provider
	catalog  *skills.Catalog
	store    transport.SessionStore
	inflight *transport.InFlightRegistry
	cfg      Config

	now func() time.Time
}

// Ensure Engine implements transport.Service at compile time.
var _ transport.Service = (*Engine)(nil)

// New creates a new Engine. The provider and catalog must not be nil.
// The store and registry can be nil: sessions are then neither recorded
// nor cancellable by ID.
func New(p provider.Provider, catalog *skills.Catalog, store transport.SessionStore, inflight *transport.InFlightRegistry, cfg Config) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("engine: provider must not be nil")
	}
	if catalog == nil {
		return nil, fmt.Errorf("engine: skill catalog must not be nil")
	}
	return &Engine{
		provider: p,
		catalog:  catalog,
		store:    store,
		inflight: inflight,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// Invoke runs a skill request to completion and writes a single JSON
// SkillResponse.
func (e *Engine) Invoke(ctx context.Context, req *api.SkillRequest, w transport.ResponseWriter) error {
	provReq, apiErr := e.skillRequest(ctx, req)
	if apiErr != nil {
		return apiErr
	}

	summary := e.newSummary(stream.DialectNative, provReq.Model, req.SkillIDs)
	start := e.now()
	msg, err := e.complete(ctx, provReq)
	if err != nil {
		summary.Status = failureStatus(err)
		summary.Error = stream.ErrorMessage(err)
		e.finishSession(ctx, summary, start)
		return completionError(err)
	}

	resp := buildSkillResponse(summary.ID, msg)
	summary.Status = api.SessionCompleted
	summary.ContainerID = msg.ContainerID
	summary.StopReason = msg.StopReason
	summary.Usage = msg.Usage
	summary.FileIDs = resp.FileIDs
	summary.Steps = countSteps(msg)
	e.finishSession(ctx, summary, start)

	return w.WriteResponse(ctx, resp)
}

// StreamInvoke runs a skill request as a native SSE stream.
func (e *Engine) StreamInvoke(ctx context.Context, req *api.SkillRequest, w transport.ResponseWriter) error {
	provReq, apiErr := e.skillRequest(ctx, req)
	if apiErr != nil {
		return apiErr
	}
	summary := e.newSummary(stream.DialectNative, provReq.Model, req.SkillIDs)
	return e.runStream(ctx, stream.NativeDialect{}, summary, provReq, w)
}

// skillRequest validates req and translates it into an upstream request
// that loads the requested skills into a code execution container.
func (e *Engine) skillRequest(ctx context.Context, req *api.SkillRequest) (*provider.Request, *api.APIError) {
	req.ApplyDefaults()
	if apiErr := api.ValidateSkillRequest(req, e.cfg.Validation); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := e.catalog.Validate(req.SkillIDs); apiErr != nil {
		return nil, apiErr
	}

	return &provider.Request{
		Model:         e.cfg.model(),
		MaxTokens:     req.MaxTokens,
		Messages:      []provider.Turn{{Role: "user", Content: req.Message}},
		ContainerID:   req.ContainerID,
		Skills:        e.catalog.Specs(req.SkillIDs),
		CodeExecution: true,
		Betas:         provider.SkillBetas(),
		APIKey:        auth.UpstreamKey(ctx),
	}, nil
}

// complete performs a non-streaming upstream call and records its metrics.
func (e *Engine) complete(ctx context.Context, req *provider.Request) (*provider.Message, error) {
	start := e.now()
	msg, err := e.provider.Complete(ctx, req)
	observability.UpstreamLatency.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.UpstreamRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		return nil, err
	}
	observability.UpstreamRequestsTotal.WithLabelValues(req.Model, "success").Inc()
	return msg, nil
}

// completionError maps a non-streaming upstream failure to the error
// returned to the client: always a server error, with the upstream or
// internal prefix.
func completionError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	apiErr := api.NewServerError(stream.ErrorMessage(err))
	var upstream *api.APIError
	if errors.As(err, &upstream) {
		apiErr.Code = upstream.Code
	}
	return apiErr
}

func failureStatus(err error) api.SessionStatus {
	if errors.Is(err, context.Canceled) {
		return api.SessionCancelled
	}
	return api.SessionFailed
}

func (e *Engine) newSummary(dialect, model string, skillIDs []string) *api.SessionSummary {
	return &api.SessionSummary{
		ID:        api.NewSessionID(),
		Object:    "session",
		Dialect:   dialect,
		Model:     model,
		SkillIDs:  skillIDs,
		CreatedAt: e.now().Unix(),
	}
}

// saveTimeout bounds the ledger write after a session ends.
const saveTimeout = 5 * time.Second

// finishSession completes a summary, records its metrics and saves it.
// The write survives request cancellation.
func (e *Engine) finishSession(ctx context.Context, s *api.SessionSummary, start time.Time) {
	s.CompletedAt = e.now().Unix()
	if s.FileIDs == nil {
		s.FileIDs = []string{}
	}
	observability.RecordSession(s, e.now().Sub(start))
	debug.Log("ledger", "session finished", "session", s.ID, "status", s.Status, "steps", s.Steps, "files", len(s.FileIDs))

	if e.store == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := e.store.SaveSession(saveCtx, s); err != nil {
		slog.Warn("failed to record session", "session", s.ID, "error", err)
	}
}
