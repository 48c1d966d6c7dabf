package transport

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that emits one structured log entry per
// operation with its request ID, skills, model, stream flag and duration.
// HTTP status codes are not visible at this level.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return Intercept(func(ctx context.Context, op Operation, next func(context.Context) error) error {
		start := time.Now()
		err := next(ctx)

		attrs := []slog.Attr{
			slog.String("request_id", RequestIDFromContext(ctx)),
			slog.String("operation", op.Name),
			slog.String("skills", op.SkillList()),
			slog.Bool("stream", op.Stream),
			slog.Duration("duration", time.Since(start)),
		}
		if op.Model != "" {
			attrs = append(attrs, slog.String("model", op.Model))
		}

		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			logger.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
		} else {
			logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
		}
		return err
	})
}
