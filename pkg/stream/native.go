package stream

import (
	"encoding/json"
	"fmt"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

// NativeDialect forwards every normalized event as its own JSON object.
type NativeDialect struct{}

var _ Dialect = NativeDialect{}

func (NativeDialect) Name() string { return DialectNative }

func (NativeDialect) Encode(ev api.Event) ([][]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", ev.Type, err)
	}
	return [][]byte{data}, nil
}
