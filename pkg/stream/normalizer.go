package stream

import (
	"github.com/Kenerlee/skillbridge/pkg/api"
	"github.com/Kenerlee/skillbridge/pkg/debug"
	"github.com/Kenerlee/skillbridge/pkg/provider"
)

// Default tool names when the upstream block carries none.
const (
	defaultToolName       = "unknown"
	defaultServerToolName = "skill"
)

// Normalize translates one raw upstream event into normalized events,
// updating the session's trackers. It returns nil for events that have
// no client-facing counterpart (pings, message deltas, unknown deltas).
func Normalize(s *Session, ev provider.Event) []api.Event {
	switch ev.Type {
	case provider.EventMessageStart:
		return []api.Event{{Type: api.EventMessageStart}}

	case provider.EventContentBlockStart:
		return normalizeBlockStart(s, ev)

	case provider.EventContentBlockDelta:
		return normalizeDelta(ev)

	case provider.EventContentBlockStop:
		return normalizeBlockStop(s, ev.Index)

	case provider.EventMessageStop:
		return []api.Event{{Type: api.EventMessageStop, TotalSteps: s.Steps.Total()}}

	case provider.EventError:
		msg := ev.Get("error.message").String()
		if msg == "" {
			msg = string(ev.Raw)
		}
		return []api.Event{api.NewErrorEvent(api.UpstreamErrorPrefix + msg)}

	default:
		return nil
	}
}

func normalizeBlockStart(s *Session, ev provider.Event) []api.Event {
	block := ev.Get("content_block")
	typ := block.Get("type").String()
	if typ == "" {
		typ = unknownBlockType
	}
	kind := ClassifyBlock(typ)
	index := ev.Index
	id := block.Get("id").String()
	toolUseID := block.Get("tool_use_id").String()

	switch kind {
	case KindToolInvocation, KindServerToolInvocation:
		name := defaultToolName
		if kind == KindServerToolInvocation {
			name = defaultServerToolName
		}
		if n := block.Get("name").String(); n != "" {
			name = n
		}
		s.Blocks.Start(index, kind, typ, id, name)
		step := s.Steps.Next(index)
		debug.Log("stream", "step started", "session", s.ID, "step", step, "tool", name, "index", index)
		return []api.Event{{
			Type:       api.EventStepStart,
			StepType:   stepType(kind),
			StepNumber: step,
			ToolName:   name,
			ToolID:     id,
			Index:      index,
		}}

	case KindToolResult:
		s.Blocks.Start(index, kind, typ, id, "")
		result := parseContentList(block.Get("content"), true)
		s.Blocks.Attach(index, result)
		s.Artifacts.ScanBlock([]byte(block.Raw))
		return []api.Event{{
			Type:      api.EventCodeResultStart,
			Index:     index,
			ToolUseID: toolUseID,
			Result:    result,
		}}

	case KindServerToolResult:
		s.Blocks.Start(index, kind, typ, id, "")
		result := parseContentList(block.Get("content"), false)
		s.Blocks.Attach(index, result)
		return []api.Event{{
			Type:      api.EventServerResultStart,
			Index:     index,
			ToolUseID: toolUseID,
			Result:    result,
		}}

	case KindSkillResult:
		s.Blocks.Start(index, kind, typ, id, "")
		result := parseSkillResult(block.Get("content"))
		s.Blocks.Attach(index, result)
		s.Artifacts.ScanResult(result)
		s.Artifacts.ScanBlock([]byte(block.Raw))
		return []api.Event{{
			Type:       api.EventSkillResultStart,
			ResultType: resultType(typ),
			Index:      index,
			ToolUseID:  toolUseID,
			Result:     result,
		}}

	default:
		s.Blocks.Start(index, kind, typ, id, "")
		return []api.Event{{Type: api.EventContentStart, ContentType: typ, Index: index}}
	}
}

func normalizeDelta(ev provider.Event) []api.Event {
	delta := ev.Get("delta")
	switch delta.Get("type").String() {
	case "text_delta":
		return []api.Event{{Type: api.EventTextDelta, Text: delta.Get("text").String()}}
	case "input_json_delta", "code_execution_input_json_delta":
		return []api.Event{{
			Type:        api.EventCodeInputDelta,
			PartialJSON: delta.Get("partial_json").String(),
			Index:       ev.Index,
		}}
	default:
		return nil
	}
}

func normalizeBlockStop(s *Session, index int) []api.Event {
	b := s.Blocks.Stop(index)
	switch b.Kind {
	case KindToolInvocation, KindServerToolInvocation:
		return []api.Event{{
			Type:       api.EventStepComplete,
			StepType:   stepType(b.Kind),
			StepNumber: s.Steps.Lookup(index),
			ToolName:   b.Name,
			ToolID:     b.ID,
			Index:      index,
		}}
	case KindToolResult:
		return []api.Event{{Type: api.EventCodeResultComplete, Index: index}}
	case KindSkillResult:
		return []api.Event{{Type: api.EventSkillResultComplete, ResultType: resultType(b.Type), Index: index}}
	default:
		return []api.Event{{Type: api.EventContentStop, ContentType: b.Type, Index: index}}
	}
}

func stepType(k BlockKind) string {
	if k == KindServerToolInvocation {
		return api.StepTypeServerToolUse
	}
	return api.StepTypeToolUse
}
