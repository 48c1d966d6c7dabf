package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

// streamErrorPrefix is how the SDK reports an in-band "error" SSE event.
const streamErrorPrefix = "received error while streaming: "

// mapError converts SDK failures into *api.APIError values of type
// upstream_error. Context errors pass through unchanged so callers can
// tell cancellation apart from upstream failure.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var sdkErr *anthropic.Error
	if errors.As(err, &sdkErr) {
		msg := gjson.Get(sdkErr.RawJSON(), "error.message").String()
		if msg == "" {
			msg = sdkErr.Error()
		}
		return api.NewUpstreamError(sdkErr.StatusCode, msg)
	}

	if payload, ok := strings.CutPrefix(err.Error(), streamErrorPrefix); ok {
		msg := gjson.Get(payload, "error.message").String()
		if msg == "" {
			msg = payload
		}
		return api.NewUpstreamError(0, msg)
	}

	return err
}
