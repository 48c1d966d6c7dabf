// Command mock-upstream runs a deterministic stand-in for the Anthropic
// Messages beta API and Files API, for local runs and demos. Point the
// gateway at it with SKILLBRIDGE_BASE_URL=http://localhost:9090.
//
// A message mentioning "report" gets a code execution run that produces
// two files; anything else gets a short text answer.
//
// Configuration:
//
//	MOCK_PORT  - Listen port (default: 9090)
//	MOCK_DELAY - Pause between stream events, e.g. "2s" (default: 50ms)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

const (
	containerID = "container_mock_01"
	toolUseID   = "srvtoolu_mock_01"
)

// mockFile is a file the fake code execution produced.
type mockFile struct {
	ID       string
	Filename string
	MimeType string
	Content  string
}

var files = []mockFile{
	{
		ID:       "file_mock_report",
		Filename: "quarterly_report.md",
		MimeType: "text/markdown",
		Content:  "# Quarterly Report\n\nRevenue grew 12% quarter over quarter.\n",
	},
	{
		ID:       "file_mock_data",
		Filename: "revenue.csv",
		MimeType: "text/csv",
		Content:  "quarter,revenue\nQ1,100\nQ2,112\n",
	},
}

var createdAt = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}
	delay := 50 * time.Millisecond
	if v := os.Getenv("MOCK_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Error("invalid MOCK_DELAY", "value", v, "error", err)
			os.Exit(1)
		}
		delay = d
	}

	m := &mock{delay: delay}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/messages", m.requireKey(m.handleMessages))
	mux.HandleFunc("GET /v1/files", m.requireKey(handleListFiles))
	mux.HandleFunc("GET /v1/files/{file_id}", m.requireKey(handleFileMetadata))
	mux.HandleFunc("GET /v1/files/{file_id}/content", m.requireKey(handleFileContent))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock upstream starting", "port", port, "delay", delay)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock upstream failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock upstream shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

type mock struct {
	delay time.Duration
}

// requireKey rejects requests without an API key, the way the real API does.
func (m *mock) requireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") == "" && r.Header.Get("Authorization") == "" {
			writeError(w, http.StatusUnauthorized, "authentication_error", "x-api-key header is required")
			return
		}
		next(w, r)
	}
}

// --- Messages ---

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Stream    bool      `json:"stream"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

func (m *mock) handleMessages(w http.ResponseWriter, r *http.Request) {
	var req messagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "messages: at least one message is required")
		return
	}
	if req.Model == "" {
		req.Model = "claude-mock"
	}

	blocks := scriptFor(lastUserText(req.Messages))
	slog.Info("messages request", "model", req.Model, "stream", req.Stream, "blocks", len(blocks))

	if req.Stream {
		m.stream(w, r, req.Model, blocks)
		return
	}
	writeJSON(w, http.StatusOK, finalMessage(req.Model, blocks))
}

// scriptedBlock is one content block of the canned answer, with the
// deltas that stream its content.
type scriptedBlock struct {
	start  map[string]any
	final  map[string]any
	deltas []map[string]any
}

func scriptFor(text string) []scriptedBlock {
	if !strings.Contains(strings.ToLower(text), "report") {
		return []scriptedBlock{textBlock("Hello from the mock upstream. ", "Ask for a report to see code execution.")}
	}

	command := `{"command":"python generate_report.py --out /tmp/outputs"}`
	outputs := make([]any, 0, len(files))
	for _, f := range files {
		outputs = append(outputs, map[string]any{"type": "bash_code_execution_output", "file_id": f.ID})
	}
	result := map[string]any{
		"type":        "bash_code_execution_tool_result",
		"tool_use_id": toolUseID,
		"content": map[string]any{
			"type":        "bash_code_execution_result",
			"stdout":      "Wrote quarterly_report.md\nWrote revenue.csv\n",
			"stderr":      "",
			"return_code": 0,
			"content":     outputs,
		},
	}

	return []scriptedBlock{
		textBlock("I'll generate the report ", "with the skill."),
		{
			start: map[string]any{"type": "server_tool_use", "id": toolUseID, "name": "bash_code_execution", "input": map[string]any{}},
			final: map[string]any{"type": "server_tool_use", "id": toolUseID, "name": "bash_code_execution",
				"input": map[string]any{"command": "python generate_report.py --out /tmp/outputs"}},
			deltas: []map[string]any{
				{"type": "input_json_delta", "partial_json": command[:20]},
				{"type": "input_json_delta", "partial_json": command[20:]},
			},
		},
		{start: result, final: result},
		textBlock("The report is ready: ", "quarterly_report.md and revenue.csv."),
	}
}

func textBlock(parts ...string) scriptedBlock {
	b := scriptedBlock{
		start: map[string]any{"type": "text", "text": ""},
		final: map[string]any{"type": "text", "text": strings.Join(parts, "")},
	}
	for _, p := range parts {
		b.deltas = append(b.deltas, map[string]any{"type": "text_delta", "text": p})
	}
	return b
}

func usesSkills(blocks []scriptedBlock) bool {
	return len(blocks) > 1
}

func container() map[string]any {
	return map[string]any{
		"id":         containerID,
		"expires_at": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	}
}

func finalMessage(model string, blocks []scriptedBlock) map[string]any {
	content := make([]any, 0, len(blocks))
	for _, b := range blocks {
		content = append(content, b.final)
	}
	msg := map[string]any{
		"id":            "msg_mock_01",
		"type":          "message",
		"role":          "assistant",
		"model":         model,
		"content":       content,
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         map[string]any{"input_tokens": 120, "output_tokens": 40 * len(blocks)},
	}
	if usesSkills(blocks) {
		msg["container"] = container()
	}
	return msg
}

// --- Streaming ---

func (m *mock) stream(w http.ResponseWriter, r *http.Request, model string, blocks []scriptedBlock) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	send := func(event string, data map[string]any) bool {
		select {
		case <-r.Context().Done():
			return false
		case <-time.After(m.delay):
		}
		payload, _ := json.Marshal(data)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
		flusher.Flush()
		return true
	}

	if !send("message_start", map[string]any{
		"type": "message_start",
		"message": map[string]any{
			"id": "msg_mock_01", "type": "message", "role": "assistant", "model": model,
			"content": []any{}, "stop_reason": nil, "stop_sequence": nil,
			"usage": map[string]any{"input_tokens": 120, "output_tokens": 1},
		},
	}) {
		return
	}
	if !send("ping", map[string]any{"type": "ping"}) {
		return
	}

	for i, b := range blocks {
		if !send("content_block_start", map[string]any{"type": "content_block_start", "index": i, "content_block": b.start}) {
			return
		}
		for _, d := range b.deltas {
			if !send("content_block_delta", map[string]any{"type": "content_block_delta", "index": i, "delta": d}) {
				return
			}
		}
		if !send("content_block_stop", map[string]any{"type": "content_block_stop", "index": i}) {
			return
		}
	}

	delta := map[string]any{"stop_reason": "end_turn", "stop_sequence": nil}
	if usesSkills(blocks) {
		delta["container"] = container()
	}
	if !send("message_delta", map[string]any{
		"type":  "message_delta",
		"delta": delta,
		"usage": map[string]any{"output_tokens": 40 * len(blocks)},
	}) {
		return
	}
	send("message_stop", map[string]any{"type": "message_stop"})
}

// --- Files ---

func fileMetadata(f mockFile) map[string]any {
	return map[string]any{
		"id":           f.ID,
		"type":         "file",
		"filename":     f.Filename,
		"mime_type":    f.MimeType,
		"size_bytes":   len(f.Content),
		"created_at":   createdAt.Format(time.RFC3339),
		"downloadable": true,
	}
}

func findFile(id string) (mockFile, bool) {
	for _, f := range files {
		if f.ID == id {
			return f, true
		}
	}
	return mockFile{}, false
}

func handleListFiles(w http.ResponseWriter, r *http.Request) {
	data := make([]any, 0, len(files))
	for _, f := range files {
		data = append(data, fileMetadata(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":     data,
		"has_more": false,
		"first_id": files[0].ID,
		"last_id":  files[len(files)-1].ID,
	})
}

func handleFileMetadata(w http.ResponseWriter, r *http.Request) {
	f, ok := findFile(r.PathValue("file_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found_error", "File not found: "+r.PathValue("file_id"))
		return
	}
	writeJSON(w, http.StatusOK, fileMetadata(f))
}

func handleFileContent(w http.ResponseWriter, r *http.Request) {
	f, ok := findFile(r.PathValue("file_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found_error", "File not found: "+r.PathValue("file_id"))
		return
	}
	w.Header().Set("Content-Type", f.MimeType)
	w.Write([]byte(f.Content))
}

// --- Helpers ---

func lastUserText(msgs []message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != "user" {
			continue
		}
		var s string
		if err := json.Unmarshal(msgs[i].Content, &s); err == nil {
			return s
		}
		var parts []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(msgs[i].Content, &parts); err == nil {
			var b strings.Builder
			for _, p := range parts {
				if p.Type == "text" {
					b.WriteString(p.Text)
				}
			}
			return b.String()
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, typ, msg string) {
	writeJSON(w, status, map[string]any{
		"type":  "error",
		"error": map[string]any{"type": typ, "message": msg},
	})
}
