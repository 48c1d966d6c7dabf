package engine

import (
	"context"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/auth"
	"github.com/Kenerlee/skillbridge/pkg/stream"
	"github.com/Kenerlee/skillbridge/pkg/transport"
)

// Ensure Engine lists models for the HTTP adapter.
var _ transport.ModelLister = (*Engine)(nil)

// ChatCompletion serves an OpenAI-compatible chat completion. Streaming
// is the default; the stream carries chat.completion.chunk frames and
// ends with [DONE].
func (e *Engine) ChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, w transport.ResponseWriter) error {
	if apiErr := api.ValidateChatRequest(req, e.cfg.Validation); apiErr != nil {
		return apiErr
	}

	model := ResolveModel(req.Model)
	provReq := translateChat(req, model)
	provReq.APIKey = auth.UpstreamKey(ctx)

	var skillIDs []string
	for _, s := range provReq.Skills {
		skillIDs = append(skillIDs, s.SkillID)
	}
	summary := e.newSummary(stream.DialectOpenAI, model, skillIDs)

	if req.Streaming() {
		dialect := stream.NewOpenAIDialect(summary.ID, model, e.now())
		return e.runStream(ctx, dialect, summary, provReq, w)
	}

	start := e.now()
	msg, err := e.complete(ctx, provReq)
	if err != nil {
		summary.Status = failureStatus(err)
		summary.Error = stream.ErrorMessage(err)
		e.finishSession(ctx, summary, start)
		return completionError(err)
	}

	summary.Status = api.SessionCompleted
	summary.ContainerID = msg.ContainerID
	summary.StopReason = msg.StopReason
	summary.Usage = msg.Usage
	summary.Steps = countSteps(msg)
	e.finishSession(ctx, summary, start)

	return w.WriteResponse(ctx, buildChatResponse(msg, model, e.now().Unix()))
}
