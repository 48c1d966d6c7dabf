package engine

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/provider"
	"github.com/Kenerlee/skillbridge/pkg/skills"
	"github.com/Kenerlee/skillbridge/pkg/stream"
)

// translateChat converts an OpenAI-style chat request into an upstream
// request. System messages are joined into the system prompt; the rest
// become turns in order.
func translateChat(req *api.ChatCompletionRequest, model string) *provider.Request {
	pr := &provider.Request{
		Model:     model,
		MaxTokens: req.MaxTokens,
	}
	if pr.MaxTokens == 0 {
		pr.MaxTokens = api.DefaultMaxTokens
	}

	var system []string
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		pr.Messages = append(pr.Messages, provider.Turn{Role: m.Role, Content: m.Content})
	}
	pr.System = strings.Join(system, "\n\n")

	if req.Container != nil {
		pr.ContainerID = req.Container.ID
		for _, s := range req.Container.Skills {
			if s.Version == "" {
				s.Version = skills.LatestVersion
			}
			pr.Skills = append(pr.Skills, s)
		}
	}
	pr.Tools = req.Tools
	pr.Betas = chatBetas(req)

	// Skills need the code execution tool; add it unless the caller
	// supplied one.
	if len(pr.Skills) > 0 && !hasCodeExecutionTool(req.Tools) {
		pr.CodeExecution = true
	}
	return pr
}

// chatBetas selects the beta flags for a chat request: the full skills
// set when skills are loaded, code execution alone when a code execution
// tool is given, otherwise none.
func chatBetas(req *api.ChatCompletionRequest) []string {
	if req.Container != nil && len(req.Container.Skills) > 0 {
		return provider.SkillBetas()
	}
	if hasCodeExecutionTool(req.Tools) {
		return []string{provider.BetaCodeExecution}
	}
	return nil
}

func hasCodeExecutionTool(tools []json.RawMessage) bool {
	for _, t := range tools {
		if strings.HasPrefix(gjson.GetBytes(t, "type").String(), "code_execution") {
			return true
		}
	}
	return false
}

// buildSkillResponse converts a completed upstream message into the
// /invoke response. Text blocks keep their text; every other block is
// reported with its raw JSON. File ids come from the result blocks.
func buildSkillResponse(sessionID string, msg *provider.Message) *api.SkillResponse {
	artifacts := stream.NewArtifactCollector()
	items := make([]api.ResponseItem, 0, len(msg.Content))
	for _, block := range msg.Content {
		typ := gjson.GetBytes(block, "type").String()
		if typ == "text" {
			items = append(items, api.ResponseItem{Type: typ, Text: gjson.GetBytes(block, "text").String()})
			continue
		}
		items = append(items, api.ResponseItem{Type: typ, Data: string(block)})
		artifacts.ScanBlock(block)
	}

	return &api.SkillResponse{
		Status:      "success",
		SessionID:   sessionID,
		ContainerID: msg.ContainerID,
		StopReason:  msg.StopReason,
		Model:       msg.Model,
		Response:    items,
		Usage:       msg.Usage,
		FileIDs:     artifacts.IDs(),
	}
}

// countSteps returns the number of tool invocation blocks in msg.
func countSteps(msg *provider.Message) int {
	n := 0
	for _, block := range msg.Content {
		if stream.ClassifyBlock(gjson.GetBytes(block, "type").String()).IsStep() {
			n++
		}
	}
	return n
}

// buildChatResponse converts a completed upstream message into a
// non-streaming chat completion.
func buildChatResponse(msg *provider.Message, model string, created int64) *api.ChatCompletionResponse {
	return &api.ChatCompletionResponse{
		ID:      api.ChatCompletionID(msg.ID),
		Object:  "chat.completion",
		Created: created,
		Model:   model,
		Choices: []api.ChatChoice{{
			Index:        0,
			Message:      api.ChatMessage{Role: "assistant", Content: msg.Text()},
			FinishReason: msg.StopReason,
		}},
		Usage:                  api.NewChatUsage(msg.Usage),
		ProviderSpecificFields: api.NewProviderFields(msg.ContainerID),
	}
}
