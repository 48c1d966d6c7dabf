package api

import (
	"encoding/json"
	"unicode/utf8"
)

// MaxOpaqueResultLength caps the content of an unrecognized result, in characters.
const MaxOpaqueResultLength = 500

// ResultKind discriminates the Result union.
type ResultKind string

const (
	ResultFileView    ResultKind = "file_view"
	ResultFileEdit    ResultKind = "file_edit"
	ResultBash        ResultKind = "bash_result"
	ResultContentList ResultKind = "content_list"
	ResultOpaque      ResultKind = "opaque"
)

// Result is the structured payload of a tool result block. Exactly one
// of the pointer fields (or Items, for ResultContentList) is set,
// matching Kind.
type Result struct {
	Kind     ResultKind
	FileView *FileViewResult
	FileEdit *FileEditResult
	Bash     *BashResult
	Items    []ResultItem
	Opaque   *OpaqueResult
}

// FileViewResult is the output of a text editor "view" command.
type FileViewResult struct {
	Content    string `json:"content"`
	FileType   string `json:"file_type"`
	NumLines   int    `json:"num_lines"`
	StartLine  int    `json:"start_line"`
	TotalLines int    `json:"total_lines"`
}

// FileEditResult is the output of a text editor edit command.
type FileEditResult struct {
	Path       string `json:"path"`
	OldContent string `json:"old_content"`
	NewContent string `json:"new_content"`
}

// BashResult is the output of a shell command run in the upstream container.
type BashResult struct {
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
	ExitCode int      `json:"exit_code"`
	FileIDs  []string `json:"file_ids"`
}

// ResultItem is one entry of a code-execution or server-tool content list.
type ResultItem struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// OpaqueResult carries a result shape the gateway does not know,
// as a bounded string.
type OpaqueResult struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// NewOpaqueResult builds a fallback result, truncating content to
// MaxOpaqueResultLength characters.
func NewOpaqueResult(typ, content string) *Result {
	return &Result{
		Kind:   ResultOpaque,
		Opaque: &OpaqueResult{Type: typ, Content: truncateRunes(content, MaxOpaqueResultLength)},
	}
}

// ArtifactIDs returns the file ids carried by the result, if any.
func (r *Result) ArtifactIDs() []string {
	if r == nil || r.Kind != ResultBash || r.Bash == nil {
		return nil
	}
	return r.Bash.FileIDs
}

// MarshalJSON serializes the variant. Typed variants carry a "type"
// discriminator; a content list serializes as a bare array.
func (r Result) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case ResultFileView:
		return marshalTyped(string(ResultFileView), r.FileView)
	case ResultFileEdit:
		return marshalTyped(string(ResultFileEdit), r.FileEdit)
	case ResultBash:
		b := BashResult{}
		if r.Bash != nil {
			b = *r.Bash
		}
		if b.FileIDs == nil {
			b.FileIDs = []string{}
		}
		return marshalTyped(string(ResultBash), &b)
	case ResultContentList:
		items := r.Items
		if items == nil {
			items = []ResultItem{}
		}
		return json.Marshal(items)
	case ResultOpaque:
		if r.Opaque == nil {
			return []byte("null"), nil
		}
		return json.Marshal(r.Opaque)
	default:
		return []byte("null"), nil
	}
}

// marshalTyped merges a "type" discriminator into the fields of v.
func marshalTyped(typ string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if string(body) != "null" {
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, err
		}
	}
	tb, _ := json.Marshal(typ)
	fields["type"] = tb
	return json.Marshal(fields)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
