package transport

import (
	"context"
	"fmt"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

// Recovery returns middleware that converts panics in the engine into
// server errors. The server keeps accepting requests afterwards.
func Recovery() Middleware {
	return Intercept(func(ctx context.Context, op Operation, next func(context.Context) error) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				retErr = api.NewServerError(fmt.Sprintf("%s%v", api.InternalErrorPrefix, r))
			}
		}()
		return next(ctx)
	})
}
