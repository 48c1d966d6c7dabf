package api

import "time"

// Defaults and limits for skill invocations.
const (
	DefaultMaxTokens       = 16384
	DefaultSingleMaxTokens = 4096
	MaxMaxTokens           = 128000
	MaxSkillsPerRequest    = 8
)

// SkillType distinguishes Anthropic-managed skills from workspace skills.
type SkillType string

const (
	SkillTypeAnthropic SkillType = "anthropic"
	SkillTypeCustom    SkillType = "custom"
)

// SkillRequest is the body of POST /invoke and POST /stream/invoke.
type SkillRequest struct {
	SkillIDs    []string `json:"skill_ids"`
	Message     string   `json:"message"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	ContainerID string   `json:"container_id,omitempty"`
}

// SkillResponse is the body returned by the non-streaming invoke endpoints.
type SkillResponse struct {
	Status      string         `json:"status"`
	SessionID   string         `json:"session_id"`
	ContainerID string         `json:"container_id"`
	StopReason  string         `json:"stop_reason"`
	Model       string         `json:"model"`
	Response    []ResponseItem `json:"response"`
	Usage       Usage          `json:"usage"`
	FileIDs     []string       `json:"file_ids"`
}

// ResponseItem is one content block of a non-streaming response. Text
// blocks carry Text; every other block carries its raw JSON in Data.
type ResponseItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Data string `json:"data,omitempty"`
}

// SkillInfo is the public metadata of one allow-listed skill.
type SkillInfo struct {
	Type        SkillType `json:"type"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// SkillListResponse is the body of GET /skills.
type SkillListResponse struct {
	Total  int                  `json:"total"`
	Skills map[string]SkillInfo `json:"skills"`
}

// FileInfo describes a file stored by the upstream Files API.
type FileInfo struct {
	FileID    string     `json:"file_id"`
	Filename  string     `json:"filename"`
	SizeBytes int64      `json:"size_bytes"`
	CreatedAt *time.Time `json:"created_at"`
	MimeType  string     `json:"mime_type,omitempty"`
}

// FileMetadataResponse is the body of GET /files/{file_id}/metadata.
type FileMetadataResponse struct {
	Status string `json:"status"`
	FileInfo
}

// FileListResponse is the body of GET /files.
type FileListResponse struct {
	Status string     `json:"status"`
	Files  []FileInfo `json:"files"`
}

// SessionStatus is the outcome recorded for a finished session.
type SessionStatus string

const (
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

// SessionSummary is what the gateway remembers about one finished
// session. It never holds message content.
type SessionSummary struct {
	ID          string        `json:"id"`
	Object      string        `json:"object"`
	Dialect     string        `json:"dialect"`
	Model       string        `json:"model"`
	SkillIDs    []string      `json:"skill_ids"`
	ContainerID string        `json:"container_id"`
	StopReason  string        `json:"stop_reason"`
	Status      SessionStatus `json:"status"`
	Usage       Usage         `json:"usage"`
	FileIDs     []string      `json:"file_ids"`
	Steps       int           `json:"steps"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   int64         `json:"created_at"`
	CompletedAt int64         `json:"completed_at"`
}

// ServiceInfo is the body of GET /.
type ServiceInfo struct {
	Message   string `json:"message"`
	Version   string `json:"version"`
	RateLimit string `json:"rate_limit"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status           string `json:"status"`
	APIKeyConfigured bool   `json:"api_key_configured"`
}
