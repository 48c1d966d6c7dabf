package stream

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

// ArtifactCollector keeps the file ids produced during a session, in
// first-seen order and without duplicates. It is not safe for
// concurrent use.
type ArtifactCollector struct {
	seen map[string]struct{}
	ids  []string
}

// NewArtifactCollector returns an empty collector.
func NewArtifactCollector() *ArtifactCollector {
	return &ArtifactCollector{seen: make(map[string]struct{})}
}

// Add records ids not seen before and returns how many were new.
func (c *ArtifactCollector) Add(ids ...string) int {
	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := c.seen[id]; ok {
			continue
		}
		c.seen[id] = struct{}{}
		c.ids = append(c.ids, id)
		added++
	}
	return added
}

// ScanResult records the file ids carried by a parsed result.
func (c *ArtifactCollector) ScanResult(r *api.Result) int {
	return c.Add(r.ArtifactIDs()...)
}

// ScanBlock records every file_id found in a raw result block. Blocks
// that are not tool results are ignored: file ids there are inputs, not
// outputs.
func (c *ArtifactCollector) ScanBlock(raw []byte) int {
	block := gjson.ParseBytes(raw)
	if !strings.HasSuffix(block.Get("type").String(), toolResultSuffix) {
		return 0
	}
	var found []string
	collectFileIDs(block.Get("content"), &found)
	return c.Add(found...)
}

// IDs returns the collected ids. The result is never nil.
func (c *ArtifactCollector) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Len returns the number of collected ids.
func (c *ArtifactCollector) Len() int {
	return len(c.ids)
}

func collectFileIDs(v gjson.Result, out *[]string) {
	switch {
	case v.IsArray():
		for _, item := range v.Array() {
			collectFileIDs(item, out)
		}
	case v.IsObject():
		v.ForEach(func(key, value gjson.Result) bool {
			if key.String() == "file_id" && value.Type == gjson.String {
				*out = append(*out, value.String())
				return true
			}
			collectFileIDs(value, out)
			return true
		})
	}
}
