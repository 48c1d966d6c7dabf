package engine

import (
	"context"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

// DefaultChatModel is the alias used when a chat request omits the model.
const DefaultChatModel = "claude-sonnet-4-5"

// modelAliases maps the model names offered to OpenAI clients onto
// upstream model IDs, in listing order.
var modelAliases = []struct {
	alias, model string
}{
	{"claude-sonnet-4-5", "claude-sonnet-4-5-20250929"},
	{"claude-sonnet-4", "claude-sonnet-4-20250514"},
	{"claude-opus-4", "claude-opus-4-20250514"},
	{"claude-3-7-sonnet", "claude-3-7-sonnet-latest"},
}

// ResolveModel maps a chat model alias to its upstream ID. Unknown names
// pass through unchanged; an empty name selects DefaultChatModel.
func ResolveModel(name string) string {
	if name == "" {
		name = DefaultChatModel
	}
	for _, a := range modelAliases {
		if a.alias == name {
			return a.model
		}
	}
	return name
}

// ListModels reports the chat model aliases.
func (e *Engine) ListModels(_ context.Context) *api.ChatModelsResponse {
	resp := &api.ChatModelsResponse{Object: "list", Data: make([]api.ChatModel, 0, len(modelAliases))}
	for _, a := range modelAliases {
		resp.Data = append(resp.Data, api.ChatModel{ID: a.alias, Object: "model", OwnedBy: "anthropic"})
	}
	return resp
}
