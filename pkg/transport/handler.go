package transport

import (
	"context"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

// Invoker runs skill invocations. Invoke writes a single JSON response;
// StreamInvoke writes a native SSE event stream. Both return an
// *api.APIError for failures detected before any output is written.
type Invoker interface {
	Invoke(ctx context.Context, req *api.SkillRequest, w ResponseWriter) error
	StreamInvoke(ctx context.Context, req *api.SkillRequest, w ResponseWriter) error
}

// ChatCompleter serves OpenAI-compatible chat completions, streamed or not.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, w ResponseWriter) error
}

// ModelLister reports the model aliases accepted by ChatCompleter.
type ModelLister interface {
	ListModels(ctx context.Context) *api.ChatModelsResponse
}

// ListOptions controls session listing.
type ListOptions struct {
	Limit   int    // Maximum number of sessions (default 20, max 100).
	Dialect string // Only sessions of this dialect, when set.
}

// SessionList is a page of session summaries, newest first.
type SessionList struct {
	Object  string                `json:"object"`
	Data    []*api.SessionSummary `json:"data"`
	HasMore bool                  `json:"has_more"`
}

// SessionStore records the summary of each finished session. It never
// stores message content.
type SessionStore interface {
	// SaveSession stores a summary. Saving an existing ID returns
	// storage.ErrConflict.
	SaveSession(ctx context.Context, s *api.SessionSummary) error

	// GetSession returns a summary, scoped to the context's tenant.
	// Missing sessions return storage.ErrNotFound.
	GetSession(ctx context.Context, id string) (*api.SessionSummary, error)

	// ListSessions returns the newest summaries for the context's tenant.
	ListSessions(ctx context.Context, opts ListOptions) (*SessionList, error)

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	Close() error
}

// ResponseWriter abstracts the two output modes of a handler: one JSON
// response, or an SSE stream of data frames and comments.
//
// BeginStream must be called before WriteData or WriteComment; it sends
// the stream headers. WriteResponse and BeginStream are mutually
// exclusive on one writer.
type ResponseWriter interface {
	// BeginStream commits the SSE response headers, advertising sessionID.
	BeginStream(sessionID string) error

	// WriteData writes and flushes one "data:" frame.
	WriteData(payload []byte) error

	// WriteComment writes and flushes one ":" comment frame.
	WriteComment(text string) error

	// WriteResponse writes a complete JSON response.
	WriteResponse(ctx context.Context, v any) error

	// Flush sends buffered data. It fails once the client is gone.
	Flush() error
}
