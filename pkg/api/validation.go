package api

import (
	"fmt"
	"strings"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxSkills      int
	MaxTokens      int
	MaxMessageSize int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxSkills:      MaxSkillsPerRequest,
		MaxTokens:      MaxMaxTokens,
		MaxMessageSize: 1024 * 1024, // 1MB
	}
}

// ApplyDefaults fills omitted optional fields of a skill request.
func (r *SkillRequest) ApplyDefaults() {
	if r.MaxTokens == 0 {
		r.MaxTokens = DefaultMaxTokens
	}
}

// ValidateSkillRequest checks the shape of a SkillRequest. Skill IDs are
// checked against the catalog separately. It returns an *APIError
// describing the first validation failure, or nil if the request is valid.
func ValidateSkillRequest(req *SkillRequest, cfg ValidationConfig) *APIError {
	if len(req.SkillIDs) == 0 {
		return NewInvalidRequestError("skill_ids", "at least one skill ID is required")
	}

	if cfg.MaxSkills > 0 && len(req.SkillIDs) > cfg.MaxSkills {
		return NewInvalidRequestError("skill_ids",
			fmt.Sprintf("Maximum %d skills allowed per request", cfg.MaxSkills))
	}

	seen := make(map[string]bool, len(req.SkillIDs))
	for _, id := range req.SkillIDs {
		if strings.TrimSpace(id) == "" {
			return NewInvalidRequestError("skill_ids", "skill IDs must not be empty")
		}
		if seen[id] {
			return NewInvalidRequestError("skill_ids", fmt.Sprintf("duplicate skill ID %q", id))
		}
		seen[id] = true
	}

	if strings.TrimSpace(req.Message) == "" {
		return NewInvalidRequestError("message", "message is required")
	}

	if cfg.MaxMessageSize > 0 && len(req.Message) > cfg.MaxMessageSize {
		return NewInvalidRequestError("message",
			fmt.Sprintf("message exceeds maximum size of %d bytes", cfg.MaxMessageSize))
	}

	if req.MaxTokens < 1 || (cfg.MaxTokens > 0 && req.MaxTokens > cfg.MaxTokens) {
		return NewInvalidRequestError("max_tokens",
			fmt.Sprintf("max_tokens must be between 1 and %d", cfg.MaxTokens))
	}

	return nil
}

// ValidateChatRequest checks a ChatCompletionRequest for validity. An
// empty model is allowed; the engine substitutes its default.
func ValidateChatRequest(req *ChatCompletionRequest, cfg ValidationConfig) *APIError {
	if len(req.Messages) == 0 {
		return NewInvalidRequestError("messages", "messages must contain at least one message")
	}

	hasTurn := false
	for i, m := range req.Messages {
		switch m.Role {
		case "system":
		case "user", "assistant":
			hasTurn = true
		default:
			return NewInvalidRequestError(fmt.Sprintf("messages[%d].role", i),
				fmt.Sprintf("unsupported role %q", m.Role))
		}
	}
	if !hasTurn {
		return NewInvalidRequestError("messages", "messages must contain a user or assistant message")
	}

	if req.MaxTokens < 0 || (cfg.MaxTokens > 0 && req.MaxTokens > cfg.MaxTokens) {
		return NewInvalidRequestError("max_tokens",
			fmt.Sprintf("max_tokens must be between 1 and %d", cfg.MaxTokens))
	}

	if req.Container != nil {
		if cfg.MaxSkills > 0 && len(req.Container.Skills) > cfg.MaxSkills {
			return NewInvalidRequestError("container.skills",
				fmt.Sprintf("Maximum %d skills allowed per request", cfg.MaxSkills))
		}
		for i, s := range req.Container.Skills {
			if s.SkillID == "" {
				return NewInvalidRequestError(fmt.Sprintf("container.skills[%d].skill_id", i), "skill_id is required")
			}
			if s.Type != SkillTypeAnthropic && s.Type != SkillTypeCustom {
				return NewInvalidRequestError(fmt.Sprintf("container.skills[%d].type", i),
					"type must be 'anthropic' or 'custom'")
			}
		}
	}

	return nil
}
