package api

import "encoding/json"

// OpenAI Chat Completions types served by /v1/chat/completions and /v1/models.

// ChatCompletionRequest is the request body for /v1/chat/completions.
// Stream defaults to true when omitted.
type ChatCompletionRequest struct {
	Model     string            `json:"model"`
	Messages  []ChatMessage     `json:"messages"`
	MaxTokens int               `json:"max_tokens,omitempty"`
	Stream    *bool             `json:"stream,omitempty"`
	Container *ChatContainer    `json:"container,omitempty"`
	Tools     []json.RawMessage `json:"tools,omitempty"`
}

// Streaming reports whether the client asked for a streamed response.
func (r *ChatCompletionRequest) Streaming() bool {
	return r.Stream == nil || *r.Stream
}

// ChatMessage represents a message in the Chat Completions format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatContainer selects the upstream container and its skills. It is an
// extension to the OpenAI request format.
type ChatContainer struct {
	ID     string      `json:"id,omitempty"`
	Skills []SkillSpec `json:"skills,omitempty"`
}

// SkillSpec references one skill loaded into a container.
type SkillSpec struct {
	Type    SkillType `json:"type"`
	SkillID string    `json:"skill_id"`
	Version string    `json:"version,omitempty"`
}

// ChatCompletionResponse is the non-streaming response from /v1/chat/completions.
type ChatCompletionResponse struct {
	ID                     string          `json:"id"`
	Object                 string          `json:"object"`
	Created                int64           `json:"created"`
	Model                  string          `json:"model"`
	Choices                []ChatChoice    `json:"choices"`
	Usage                  *ChatUsage      `json:"usage,omitempty"`
	ProviderSpecificFields *ProviderFields `json:"provider_specific_fields,omitempty"`
}

// ChatChoice represents one completion choice.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatUsage holds token usage in Chat Completions form.
type ChatUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// NewChatUsage converts upstream usage to Chat Completions usage.
func NewChatUsage(u Usage) *ChatUsage {
	return &ChatUsage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      u.Total(),
	}
}

// ProviderFields carries upstream details that have no OpenAI equivalent.
type ProviderFields struct {
	Container *ContainerRef `json:"container"`
}

// ContainerRef identifies the upstream container a response ran in.
type ContainerRef struct {
	ID string `json:"id"`
}

// NewProviderFields returns provider fields for a container ID, with a
// null container when the ID is empty.
func NewProviderFields(containerID string) *ProviderFields {
	if containerID == "" {
		return &ProviderFields{}
	}
	return &ProviderFields{Container: &ContainerRef{ID: containerID}}
}

// ChatCompletionChunk is a single SSE chunk in a streaming response.
type ChatCompletionChunk struct {
	ID                     string            `json:"id"`
	Object                 string            `json:"object"`
	Created                int64             `json:"created"`
	Model                  string            `json:"model"`
	Choices                []ChatChunkChoice `json:"choices"`
	Usage                  *ChatUsage        `json:"usage,omitempty"`
	ProviderSpecificFields *ProviderFields   `json:"provider_specific_fields,omitempty"`
}

// ChatChunkChoice represents a streaming choice delta.
type ChatChunkChoice struct {
	Index        int            `json:"index"`
	Delta        ChatChunkDelta `json:"delta"`
	FinishReason *string        `json:"finish_reason"`
}

// ChatChunkDelta holds incremental content in a streaming chunk.
type ChatChunkDelta struct {
	Content *string `json:"content,omitempty"`
}

// ChatStreamError is the payload sent when a chat stream fails.
type ChatStreamError struct {
	Error string `json:"error"`
}

// ChatModelsResponse is the response from /v1/models.
type ChatModelsResponse struct {
	Object string      `json:"object"`
	Data   []ChatModel `json:"data"`
}

// ChatModel represents a model in the /v1/models response.
type ChatModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}
