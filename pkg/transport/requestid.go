package transport

import (
	"context"

	"github.com/google/uuid"
)

// RequestID returns middleware that assigns a unique request ID to each
// operation. An ID already in the context (set by the HTTP adapter from
// the X-Request-ID header) is kept.
func RequestID() Middleware {
	return Intercept(func(ctx context.Context, op Operation, next func(context.Context) error) error {
		if RequestIDFromContext(ctx) == "" {
			ctx = ContextWithRequestID(ctx, uuid.NewString())
		}
		return next(ctx)
	})
}
