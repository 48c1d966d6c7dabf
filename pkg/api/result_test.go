package api

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestResultMarshalBash(t *testing.T) {
	r := &Result{Kind: ResultBash, Bash: &BashResult{Stdout: "ok\n", ExitCode: 0, FileIDs: []string{"file_a", "file_b"}}}
	m := marshalMap(t, r)
	if m["type"] != "bash_result" {
		t.Errorf("type = %v, want bash_result", m["type"])
	}
	ids, ok := m["file_ids"].([]any)
	if !ok || len(ids) != 2 {
		t.Errorf("file_ids = %v, want two ids", m["file_ids"])
	}
	if _, ok := m["exit_code"]; !ok {
		t.Error("exit_code missing")
	}
}

func TestResultMarshalFileView(t *testing.T) {
	r := &Result{Kind: ResultFileView, FileView: &FileViewResult{Content: "a\nb", FileType: "text", NumLines: 2, StartLine: 1, TotalLines: 2}}
	m := marshalMap(t, r)
	if m["type"] != "file_view" || m["num_lines"] != float64(2) {
		t.Errorf("file_view = %v", m)
	}
}

func TestResultMarshalContentList(t *testing.T) {
	r := &Result{Kind: ResultContentList, Items: []ResultItem{
		{Type: "text", Text: "42"},
		{Type: "image", MediaType: "image/png"},
	}}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `[{"type":"text","text":"42"},{"type":"image","media_type":"image/png"}]`
	if string(data) != want {
		t.Errorf("content list = %s, want %s", data, want)
	}
}

func TestNewOpaqueResultTruncates(t *testing.T) {
	long := strings.Repeat("é", MaxOpaqueResultLength+20)
	r := NewOpaqueResult("web_fetch_result", long)
	if n := utf8.RuneCountInString(r.Opaque.Content); n != MaxOpaqueResultLength {
		t.Errorf("content length = %d, want %d", n, MaxOpaqueResultLength)
	}

	short := NewOpaqueResult("x", "tiny")
	if short.Opaque.Content != "tiny" {
		t.Errorf("content = %q, want unchanged", short.Opaque.Content)
	}

	m := marshalMap(t, r)
	if m["type"] != "web_fetch_result" {
		t.Errorf("type = %v, want web_fetch_result", m["type"])
	}
}

func TestResultArtifactIDs(t *testing.T) {
	var nilResult *Result
	if ids := nilResult.ArtifactIDs(); ids != nil {
		t.Errorf("nil result ids = %v", ids)
	}
	edit := &Result{Kind: ResultFileEdit, FileEdit: &FileEditResult{Path: "/tmp/x"}}
	if ids := edit.ArtifactIDs(); ids != nil {
		t.Errorf("file_edit ids = %v", ids)
	}
	bash := &Result{Kind: ResultBash, Bash: &BashResult{FileIDs: []string{"f1"}}}
	if ids := bash.ArtifactIDs(); len(ids) != 1 || ids[0] != "f1" {
		t.Errorf("bash ids = %v", ids)
	}
}
