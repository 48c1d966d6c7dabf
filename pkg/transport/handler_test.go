package transport

import (
	"context"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

// Compile-time interface checks.
var (
	_ Service      = (*mockService)(nil)
	_ SessionStore = (*mockStore)(nil)
)

type mockService struct {
	invoke func(ctx context.Context, req *api.SkillRequest, w ResponseWriter) error
	chat   func(ctx context.Context, req *api.ChatCompletionRequest, w ResponseWriter) error
}

func (m *mockService) Invoke(ctx context.Context, req *api.SkillRequest, w ResponseWriter) error {
	if m.invoke == nil {
		return nil
	}
	return m.invoke(ctx, req, w)
}

func (m *mockService) StreamInvoke(ctx context.Context, req *api.SkillRequest, w ResponseWriter) error {
	return m.Invoke(ctx, req, w)
}

func (m *mockService) ChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, w ResponseWriter) error {
	if m.chat == nil {
		return nil
	}
	return m.chat(ctx, req, w)
}

type mockStore struct{}

func (m *mockStore) SaveSession(_ context.Context, _ *api.SessionSummary) error { return nil }
func (m *mockStore) GetSession(_ context.Context, _ string) (*api.SessionSummary, error) {
	return nil, nil
}
func (m *mockStore) ListSessions(_ context.Context, _ ListOptions) (*SessionList, error) {
	return nil, nil
}
func (m *mockStore) HealthCheck(_ context.Context) error { return nil }
func (m *mockStore) Close() error                        { return nil }

// recordingWriter is a minimal ResponseWriter for testing middleware.
type recordingWriter struct {
	sessionID string
	frames    [][]byte
	comments  []string
	response  any
	flushed   bool
}

func (w *recordingWriter) BeginStream(id string) error {
	w.sessionID = id
	return nil
}

func (w *recordingWriter) WriteData(p []byte) error {
	w.frames = append(w.frames, p)
	return nil
}

func (w *recordingWriter) WriteComment(text string) error {
	w.comments = append(w.comments, text)
	return nil
}

func (w *recordingWriter) WriteResponse(_ context.Context, v any) error {
	w.response = v
	return nil
}

func (w *recordingWriter) Flush() error {
	w.flushed = true
	return nil
}
