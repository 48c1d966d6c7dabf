package stream

import "github.com/Kenerlee/skillbridge/pkg/api"

// Dialect serializes normalized events for one client protocol. Encode
// returns the payloads of zero or more "data:" frames; a nil result
// means the event is not part of the dialect.
type Dialect interface {
	Name() string
	Encode(ev api.Event) ([][]byte, error)
}

// Dialect names, used as metric and ledger labels.
const (
	DialectNative = "native"
	DialectOpenAI = "openai"
)
