package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/debug"
	"github.com/Kenerlee/skillbridge/pkg/observability"
	"github.com/Kenerlee/skillbridge/pkg/provider"
	"github.com/Kenerlee/skillbridge/pkg/skills"
	"github.com/Kenerlee/skillbridge/pkg/storage"
	"github.com/Kenerlee/skillbridge/pkg/stream"
	"github.com/Kenerlee/skillbridge/pkg/transport"
)

// ServiceName is reported by GET /.
const ServiceName = "Anthropic Skills API Server"

// Adapter serves the skills gateway over HTTP.
// It routes requests to the appropriate handler and serializes responses.
type Adapter struct {
	service  transport.Service
	models   transport.ModelLister
	catalog  *skills.Catalog
	files    provider.FileStore     // nil disables the /files routes
	store    transport.SessionStore // nil disables session lookups
	inflight *transport.InFlightRegistry
	mux      *http.ServeMux
	config   Config
}

// Deps are the collaborators an Adapter dispatches to. Service, Models
// and Catalog are required.
type Deps struct {
	Service  transport.Service
	Models   transport.ModelLister
	Catalog  *skills.Catalog
	Files    provider.FileStore
	Store    transport.SessionStore
	InFlight *transport.InFlightRegistry
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
	Version     string

	// RateLimit is the human-readable limit shown by GET /.
	RateLimit string

	// APIKeyConfigured is reported by GET /health.
	APIKeyConfigured bool

	// CORSOrigins lists the allowed browser origins.
	CORSOrigins []string

	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string

	// Auth wraps every route with authentication and rate limiting.
	Auth func(http.Handler) http.Handler
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
		Version:     "1.0.0",
		RateLimit:   "5 requests per second",
		CORSOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		MetricsPath: "/metrics",
	}
}

// NewAdapter creates an HTTP adapter. Middleware is applied to the
// service in the given order.
func NewAdapter(deps Deps, cfg Config, middlewares ...transport.Middleware) *Adapter {
	svc := deps.Service
	if len(middlewares) > 0 {
		svc = transport.Chain(middlewares...)(svc)
	}

	a := &Adapter{
		service:  svc,
		models:   deps.Models,
		catalog:  deps.Catalog,
		files:    deps.Files,
		store:    deps.Store,
		inflight: deps.InFlight,
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("GET /{$}", a.handleRoot)
	a.mux.HandleFunc("GET /skills", a.handleListSkills)
	a.mux.HandleFunc("POST /invoke", a.handleInvoke)
	a.mux.HandleFunc("POST /invoke/{skill_name}", a.handleInvokeSkill)
	a.mux.HandleFunc("POST /stream/invoke", a.handleStreamInvoke)
	a.mux.HandleFunc("POST /v1/chat/completions", a.handleChatCompletions)
	a.mux.HandleFunc("GET /v1/models", a.handleListModels)
	a.mux.HandleFunc("GET /files", a.handleListFiles)
	a.mux.HandleFunc("GET /files/{file_id}/metadata", a.handleFileMetadata)
	a.mux.HandleFunc("GET /files/{file_id}/download", a.handleFileDownload)
	a.mux.HandleFunc("GET /v1/sessions", a.handleListSessions)
	a.mux.HandleFunc("GET /v1/sessions/{id}", a.handleGetSession)
	a.mux.HandleFunc("DELETE /v1/sessions/{id}", a.handleCancelSession)
	a.mux.HandleFunc("GET /health", a.handleHealth)
	a.mux.HandleFunc("GET /healthz", handleLiveness)
	if cfg.MetricsPath != "" {
		a.mux.Handle("GET "+cfg.MetricsPath, promhttp.Handler())
	}

	return a
}

// Handler returns the http.Handler for this adapter, wrapped in CORS,
// request metrics, request ID propagation and, when configured, auth.
func (a *Adapter) Handler() http.Handler {
	var h http.Handler = a.mux
	if a.config.Auth != nil {
		h = a.config.Auth(h)
	}
	h = httpRequestIDMiddleware(h)
	h = observability.MetricsMiddleware(a.route)(h)
	return cors.Handler(cors.Options{
		AllowedOrigins:   a.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{SessionHeader, "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})(h)
}

// InFlight returns the registry of running streams.
func (a *Adapter) InFlight() *transport.InFlightRegistry {
	return a.inflight
}

// route returns the mux pattern that serves r, for metric labels.
func (a *Adapter) route(r *http.Request) string {
	_, pattern := a.mux.Handler(r)
	return pattern
}

// httpRequestIDMiddleware assigns each request its X-Request-ID: the
// client's header when present, otherwise a fresh UUID. The ID is echoed
// on the response and stored in the request context, where the
// transport-level RequestID middleware keeps it.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(transport.ContextWithRequestID(r.Context(), id)))
	})
}

// handleRoot handles GET /.
func (a *Adapter) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, api.ServiceInfo{
		Message:   ServiceName,
		Version:   a.config.Version,
		RateLimit: a.config.RateLimit,
	})
}

// handleListSkills handles GET /skills.
func (a *Adapter) handleListSkills(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.catalog.Response())
}

// handleInvoke handles POST /invoke.
func (a *Adapter) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req api.SkillRequest
	if !a.decodeBody(w, r, &req) {
		return
	}

	rw := newSSEResponseWriter(w)
	if err := a.service.Invoke(r.Context(), &req, rw); err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// handleInvokeSkill handles POST /invoke/{skill_name}. The message and
// max_tokens come from the query string.
func (a *Adapter) handleInvokeSkill(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("skill_name")
	skill, ok := a.catalog.Resolve(name)
	if !ok {
		transport.WriteAPIError(w, api.NewNotFoundError(fmt.Sprintf("skill %q not found", name)))
		return
	}

	q := r.URL.Query()
	req := api.SkillRequest{
		SkillIDs:  []string{skill.ID},
		Message:   q.Get("message"),
		MaxTokens: api.DefaultSingleMaxTokens,
	}
	if v := q.Get("max_tokens"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			transport.WriteAPIError(w, api.NewInvalidRequestError("max_tokens", "max_tokens must be an integer"))
			return
		}
		req.MaxTokens = n
	}

	rw := newSSEResponseWriter(w)
	if err := a.service.Invoke(r.Context(), &req, rw); err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// handleStreamInvoke handles POST /stream/invoke.
func (a *Adapter) handleStreamInvoke(w http.ResponseWriter, r *http.Request) {
	var req api.SkillRequest
	if !a.decodeBody(w, r, &req) {
		return
	}

	rw := newSSEResponseWriter(w)
	if err := a.service.StreamInvoke(r.Context(), &req, rw); err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// handleChatCompletions handles POST /v1/chat/completions.
func (a *Adapter) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req api.ChatCompletionRequest
	if !a.decodeBody(w, r, &req) {
		return
	}

	rw := newSSEResponseWriter(w)
	if err := a.service.ChatCompletion(r.Context(), &req, rw); err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// handleListModels handles GET /v1/models.
func (a *Adapter) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.models.ListModels(r.Context()))
}

// handleListFiles handles GET /files.
func (a *Adapter) handleListFiles(w http.ResponseWriter, r *http.Request) {
	if !a.filesAvailable(w) {
		return
	}
	files, err := a.files.ListFiles(r.Context())
	if err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}
	if files == nil {
		files = []api.FileInfo{}
	}
	writeJSON(w, api.FileListResponse{Status: "success", Files: files})
}

// handleFileMetadata handles GET /files/{file_id}/metadata.
func (a *Adapter) handleFileMetadata(w http.ResponseWriter, r *http.Request) {
	if !a.filesAvailable(w) {
		return
	}
	info, err := a.files.FileMetadata(r.Context(), r.PathValue("file_id"))
	if err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}
	writeJSON(w, api.FileMetadataResponse{Status: "success", FileInfo: *info})
}

// handleFileDownload handles GET /files/{file_id}/download.
func (a *Adapter) handleFileDownload(w http.ResponseWriter, r *http.Request) {
	if !a.filesAvailable(w) {
		return
	}
	f, err := a.files.DownloadFile(r.Context(), r.PathValue("file_id"))
	if err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}
	defer f.Body.Close()

	w.Header().Set("Content-Type", MimeType(f.Info.Filename))
	w.Header().Set("Content-Disposition", ContentDisposition(f.Info.Filename))
	if _, err := io.Copy(w, f.Body); err != nil {
		debug.Log("http", "file download interrupted", "file_id", f.Info.FileID, "error", err)
	}
}

// handleListSessions handles GET /v1/sessions.
func (a *Adapter) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if !a.storeAvailable(w) {
		return
	}

	opts := transport.ListOptions{Dialect: r.URL.Query().Get("dialect")}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			transport.WriteAPIError(w, api.NewInvalidRequestError("limit", "limit must be a positive integer"))
			return
		}
		opts.Limit = limit
	}

	list, err := a.store.ListSessions(r.Context(), opts)
	if err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}
	writeJSON(w, list)
}

// handleGetSession handles GET /v1/sessions/{id}.
func (a *Adapter) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if !a.storeAvailable(w) {
		return
	}

	id := r.PathValue("id")
	if !api.ValidateSessionID(id) {
		transport.WriteAPIError(w, api.NewInvalidRequestError("id", "malformed session ID"))
		return
	}

	sess, err := a.store.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			transport.WriteAPIError(w, api.NewNotFoundError("session "+id+" not found"))
			return
		}
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}
	writeJSON(w, sess)
}

// handleCancelSession handles DELETE /v1/sessions/{id}. Only running
// sessions can be cancelled; finished ones are reported as not found.
func (a *Adapter) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !api.ValidateSessionID(id) {
		transport.WriteAPIError(w, api.NewInvalidRequestError("id", "malformed session ID"))
		return
	}

	if a.inflight.Cancel(id, stream.ErrSessionCancelled) {
		debug.Log("http", "session cancelled", "session", id)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	transport.WriteAPIError(w, api.NewNotFoundError("session "+id+" is not running"))
}

// handleHealth handles GET /health.
func (a *Adapter) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, api.HealthResponse{Status: "healthy", APIKeyConfigured: a.config.APIKeyConfigured})
}

// handleLiveness handles GET /healthz.
func handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// decodeBody reads a JSON request body into v, writing the error
// response and returning false when it cannot.
func (a *Adapter) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "application/json") {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteAPIError(w, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()))
		return false
	}
	return true
}

func (a *Adapter) filesAvailable(w http.ResponseWriter) bool {
	if a.files == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "file access is not available (no file store configured)"),
			http.StatusNotImplemented,
		)
		return false
	}
	return true
}

func (a *Adapter) storeAvailable(w http.ResponseWriter) bool {
	if a.store == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "session lookup is not available (no store configured)"),
			http.StatusNotImplemented,
		)
		return false
	}
	return true
}

// writeHandlerError writes an error returned by the service. Once a stream
// has begun the service has already reported the failure in-band, so
// nothing more is written.
func (a *Adapter) writeHandlerError(w http.ResponseWriter, rw *sseResponseWriter, err error) {
	if rw.used() {
		debug.Log("http", "error after output started", "error", err)
		return
	}
	transport.WriteAPIError(w, transport.AsAPIError(err))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// mimeTypes maps download file extensions to content types.
var mimeTypes = map[string]string{
	".md":   "text/markdown",
	".txt":  "text/plain",
	".json": "application/json",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pdf":  "application/pdf",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// MimeType returns the download content type for a filename.
func MimeType(filename string) string {
	if t, ok := mimeTypes[strings.ToLower(path.Ext(filename))]; ok {
		return t
	}
	return "application/octet-stream"
}

// ContentDisposition returns an attachment header value carrying the
// filename in RFC 5987 form.
func ContentDisposition(filename string) string {
	return "attachment; filename*=UTF-8''" + strings.ReplaceAll(url.QueryEscape(filename), "+", "%20")
}
