package anthropic

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/provider"
)

// buildParams converts a provider.Request into beta Messages API parameters.
func buildParams(req *provider.Request) anthropic.BetaMessageNewParams {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	params := anthropic.BetaMessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  translateTurns(req.Messages),
	}

	if req.System != "" {
		params.System = []anthropic.BetaTextBlockParam{{Text: req.System}}
	}

	if len(req.Skills) > 0 || req.ContainerID != "" {
		container := &anthropic.BetaContainerParams{}
		if req.ContainerID != "" {
			container.ID = anthropic.String(req.ContainerID)
		}
		for _, s := range req.Skills {
			sp := anthropic.BetaSkillParams{
				SkillID: s.SkillID,
				Type:    anthropic.BetaSkillParamsType(s.Type),
			}
			if s.Version != "" {
				sp.Version = anthropic.String(s.Version)
			}
			container.Skills = append(container.Skills, sp)
		}
		params.Container = anthropic.BetaMessageNewParamsContainerUnion{OfContainers: container}
	}

	if req.CodeExecution {
		params.Tools = []anthropic.BetaToolUnionParam{
			{OfCodeExecutionTool20250825: &anthropic.BetaCodeExecutionTool20250825Param{}},
		}
	}

	for _, raw := range req.Tools {
		params.Tools = append(params.Tools, param.Override[anthropic.BetaToolUnionParam](raw))
	}

	for _, b := range req.Betas {
		params.Betas = append(params.Betas, anthropic.AnthropicBeta(b))
	}

	return params
}

func translateTurns(turns []provider.Turn) []anthropic.BetaMessageParam {
	out := make([]anthropic.BetaMessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewBetaTextBlock(t.Content)
		if t.Role == "assistant" {
			out = append(out, anthropic.BetaMessageParam{
				Role:    anthropic.BetaMessageParamRoleAssistant,
				Content: []anthropic.BetaContentBlockParamUnion{block},
			})
			continue
		}
		out = append(out, anthropic.NewBetaUserMessage(block))
	}
	return out
}

// convertMessage converts a complete SDK message. Each block keeps the
// raw JSON received from the API.
func convertMessage(msg *anthropic.BetaMessage) *provider.Message {
	out := &provider.Message{
		ID:          msg.ID,
		Model:       string(msg.Model),
		ContainerID: msg.Container.ID,
		StopReason:  string(msg.StopReason),
		Usage: api.Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
	for _, block := range msg.Content {
		if raw := block.RawJSON(); raw != "" {
			out.Content = append(out.Content, json.RawMessage(raw))
		}
	}
	return out
}
