package api

import "encoding/json"

// EventType identifies a normalized stream event.
type EventType string

// Block lifecycle events.
const (
	EventTextDelta           EventType = "text_delta"
	EventCodeInputDelta      EventType = "code_input_delta"
	EventStepStart           EventType = "step_start"
	EventStepComplete        EventType = "step_complete"
	EventContentStart        EventType = "content_start"
	EventContentStop         EventType = "content_stop"
	EventCodeResultStart     EventType = "code_result_start"
	EventCodeResultComplete  EventType = "code_result_complete"
	EventServerResultStart   EventType = "server_result_start"
	EventSkillResultStart    EventType = "skill_result_start"
	EventSkillResultComplete EventType = "skill_result_complete"
)

// Message lifecycle events. Done and Error are terminal: nothing follows them.
const (
	EventMessageStart EventType = "message_start"
	EventMessageStop  EventType = "message_stop"
	EventDone         EventType = "done"
	EventError        EventType = "error"
)

// Step types reported in step_start and step_complete.
const (
	StepTypeToolUse       = "tool_use"
	StepTypeServerToolUse = "server_tool_use"
)

// Usage holds upstream token counts.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Total returns the sum of input and output tokens.
func (u Usage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

// Event is one normalized stream event. Only the fields belonging to Type
// are serialized; MarshalJSON selects them.
type Event struct {
	Type EventType

	Text        string
	PartialJSON string
	Index       int

	StepType   string
	StepNumber int
	ToolName   string
	ToolID     string

	ContentType string
	ResultType  string
	ToolUseID   string
	Result      *Result

	TotalSteps int

	ContainerID string
	StopReason  string
	Usage       Usage
	FileIDs     []string

	Error string
}

// Terminal reports whether no further events may follow e.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// MarshalJSON emits the wire shape for the event's type. Integer fields
// such as index are always present, even when zero.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventTextDelta:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			Text string    `json:"text"`
		}{e.Type, e.Text})

	case EventCodeInputDelta:
		return json.Marshal(struct {
			Type        EventType `json:"type"`
			PartialJSON string    `json:"partial_json"`
			Index       int       `json:"index"`
		}{e.Type, e.PartialJSON, e.Index})

	case EventStepStart, EventStepComplete:
		return json.Marshal(struct {
			Type       EventType `json:"type"`
			StepType   string    `json:"step_type"`
			StepNumber int       `json:"step_number"`
			ToolName   string    `json:"tool_name"`
			ToolID     string    `json:"tool_id"`
			Index      int       `json:"index"`
		}{e.Type, e.StepType, e.StepNumber, e.ToolName, e.ToolID, e.Index})

	case EventContentStart, EventContentStop:
		return json.Marshal(struct {
			Type        EventType `json:"type"`
			ContentType string    `json:"content_type"`
			Index       int       `json:"index"`
		}{e.Type, e.ContentType, e.Index})

	case EventCodeResultStart, EventServerResultStart:
		return json.Marshal(struct {
			Type      EventType `json:"type"`
			Index     int       `json:"index"`
			ToolUseID string    `json:"tool_use_id"`
			Result    *Result   `json:"result"`
		}{e.Type, e.Index, e.ToolUseID, e.Result})

	case EventCodeResultComplete:
		return json.Marshal(struct {
			Type  EventType `json:"type"`
			Index int       `json:"index"`
		}{e.Type, e.Index})

	case EventSkillResultStart:
		return json.Marshal(struct {
			Type       EventType `json:"type"`
			ResultType string    `json:"result_type"`
			Index      int       `json:"index"`
			ToolUseID  string    `json:"tool_use_id"`
			Result     *Result   `json:"result"`
		}{e.Type, e.ResultType, e.Index, e.ToolUseID, e.Result})

	case EventSkillResultComplete:
		return json.Marshal(struct {
			Type       EventType `json:"type"`
			ResultType string    `json:"result_type"`
			Index      int       `json:"index"`
		}{e.Type, e.ResultType, e.Index})

	case EventMessageStop:
		return json.Marshal(struct {
			Type       EventType `json:"type"`
			TotalSteps int       `json:"total_steps"`
		}{e.Type, e.TotalSteps})

	case EventDone:
		fileIDs := e.FileIDs
		if fileIDs == nil {
			fileIDs = []string{}
		}
		return json.Marshal(struct {
			Type        EventType `json:"type"`
			ContainerID string    `json:"container_id"`
			StopReason  string    `json:"stop_reason"`
			Usage       Usage     `json:"usage"`
			FileIDs     []string  `json:"file_ids"`
		}{e.Type, e.ContainerID, e.StopReason, e.Usage, fileIDs})

	case EventError:
		return json.Marshal(struct {
			Type  EventType `json:"type"`
			Error string    `json:"error"`
		}{e.Type, e.Error})

	default:
		return json.Marshal(struct {
			Type EventType `json:"type"`
		}{e.Type})
	}
}

// NewErrorEvent returns a terminal error event.
func NewErrorEvent(message string) Event {
	return Event{Type: EventError, Error: message}
}
