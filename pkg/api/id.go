package api

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	sessionIDPrefix = "sess_"
	chatIDPrefix    = "chatcmpl-"
)

var sessionIDPattern = regexp.MustCompile(`^sess_[0-9a-f]{32}$`)

// NewSessionID generates a session ID: "sess_" followed by a random
// UUID in its 32-character hex form.
func NewSessionID() string {
	return sessionIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidateSessionID reports whether id has the shape produced by NewSessionID.
func ValidateSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// ChatCompletionID derives the chat completion ID reported to OpenAI
// clients from a session or upstream message ID.
func ChatCompletionID(id string) string {
	return chatIDPrefix + strings.TrimPrefix(id, sessionIDPrefix)
}
