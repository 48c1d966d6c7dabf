package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Kenerlee/skillbridge/pkg/transport"
)

// writerState tracks the state of an SSE ResponseWriter.
type writerState int

const (
	writerIdle      writerState = iota // Initial state, no writes yet
	writerStreaming                    // BeginStream has been called
	writerCompleted                    // WriteResponse has been called
)

// SessionHeader advertises the session ID of a stream, so clients can
// cancel it with DELETE /v1/sessions/{id}.
const SessionHeader = "X-Session-Id"

// sseResponseWriter implements transport.ResponseWriter for HTTP/SSE responses.
// It handles both streaming (SSE) and non-streaming (JSON) output.
type sseResponseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState
}

var _ transport.ResponseWriter = (*sseResponseWriter)(nil)

// newSSEResponseWriter creates a new ResponseWriter wrapping an http.ResponseWriter.
func newSSEResponseWriter(w http.ResponseWriter) *sseResponseWriter {
	return &sseResponseWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// BeginStream sends the SSE headers and a 200 status.
func (s *sseResponseWriter) BeginStream(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != writerIdle {
		return errors.New("cannot begin stream: writer already used")
	}

	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	if sessionID != "" {
		h.Set(SessionHeader, sessionID)
	}
	s.w.WriteHeader(http.StatusOK)
	s.state = writerStreaming

	return s.flush()
}

// WriteData sends one frame formatted as:
//
//	data: {payload}\n
//	\n
func (s *sseResponseWriter) WriteData(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != writerStreaming {
		return errors.New("cannot write data: stream not started")
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	return s.flush()
}

// WriteComment sends one comment frame, ignored by SSE clients:
//
//	: {text}\n
//	\n
func (s *sseResponseWriter) WriteComment(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != writerStreaming {
		return errors.New("cannot write comment: stream not started")
	}
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return fmt.Errorf("failed to write comment: %w", err)
	}
	return s.flush()
}

// WriteResponse sends a complete non-streaming JSON response.
// This is mutually exclusive with BeginStream.
func (s *sseResponseWriter) WriteResponse(_ context.Context, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerStreaming {
		return errors.New("cannot write response: streaming has already started")
	}
	if s.state == writerCompleted {
		return errors.New("cannot write response: writer is completed")
	}

	s.w.Header().Set("Content-Type", "application/json")
	s.state = writerCompleted

	if err := json.NewEncoder(s.w).Encode(v); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return nil
}

// Flush ensures buffered data is sent to the client.
func (s *sseResponseWriter) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *sseResponseWriter) flush() error {
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

// used reports whether any output has been committed.
func (s *sseResponseWriter) used() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != writerIdle
}
