package transport

import (
	"context"
	"strings"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

// Service is the complete protocol-facing surface of the gateway engine.
type Service interface {
	Invoker
	ChatCompleter
}

// Operation describes one call passing through middleware.
type Operation struct {
	Name   string // "invoke", "stream_invoke" or "chat_completion"
	Stream bool
	Model  string
	Skills []string
}

// Operation names.
const (
	OpInvoke         = "invoke"
	OpStreamInvoke   = "stream_invoke"
	OpChatCompletion = "chat_completion"
)

// Interceptor runs around one Service call. It must call next to
// continue the chain, optionally with a derived context.
type Interceptor func(ctx context.Context, op Operation, next func(context.Context) error) error

// Middleware wraps a Service to add cross-cutting behavior.
// Middleware is applied in order: the first middleware in the chain is
// the outermost wrapper (executes first on the way in, last on the way out).
type Middleware func(Service) Service

// Chain composes multiple middleware into a single middleware.
// Middleware are applied in order: Chain(a, b, c) produces a(b(c(handler))).
func Chain(middlewares ...Middleware) Middleware {
	return func(next Service) Service {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Intercept returns middleware that runs fn around every operation.
func Intercept(fn Interceptor) Middleware {
	return func(next Service) Service {
		return &intercepted{next: next, fn: fn}
	}
}

type intercepted struct {
	next Service
	fn   Interceptor
}

func (s *intercepted) Invoke(ctx context.Context, req *api.SkillRequest, w ResponseWriter) error {
	op := Operation{Name: OpInvoke, Skills: req.SkillIDs}
	return s.fn(ctx, op, func(ctx context.Context) error {
		return s.next.Invoke(ctx, req, w)
	})
}

func (s *intercepted) StreamInvoke(ctx context.Context, req *api.SkillRequest, w ResponseWriter) error {
	op := Operation{Name: OpStreamInvoke, Stream: true, Skills: req.SkillIDs}
	return s.fn(ctx, op, func(ctx context.Context) error {
		return s.next.StreamInvoke(ctx, req, w)
	})
}

func (s *intercepted) ChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, w ResponseWriter) error {
	op := Operation{Name: OpChatCompletion, Stream: req.Streaming(), Model: req.Model}
	if req.Container != nil {
		for _, sk := range req.Container.Skills {
			op.Skills = append(op.Skills, sk.SkillID)
		}
	}
	return s.fn(ctx, op, func(ctx context.Context) error {
		return s.next.ChatCompletion(ctx, req, w)
	})
}

// SkillList renders op.Skills for log attributes.
func (op Operation) SkillList() string {
	return strings.Join(op.Skills, ",")
}

// requestIDKeyType is the context key type for request IDs.
type requestIDKeyType struct{}

// requestIDKey is the context key for storing and retrieving request IDs.
var requestIDKey = requestIDKeyType{}

// RequestIDFromContext extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}
