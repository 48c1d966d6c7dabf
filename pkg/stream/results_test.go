package stream

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

func TestParseSkillResult_FileView(t *testing.T) {
	r := parseSkillResult(gjson.Parse(`{"type":"text_editor_code_execution_view_result","content":"a\nb","num_lines":2,"total_lines":40}`))
	if r == nil || r.Kind != api.ResultFileView {
		t.Fatalf("result = %+v, want file_view", r)
	}
	v := r.FileView
	if v.Content != "a\nb" || v.NumLines != 2 || v.TotalLines != 40 {
		t.Errorf("FileView = %+v", v)
	}
	if v.FileType != "text" {
		t.Errorf("FileType = %q, want default text", v.FileType)
	}
	if v.StartLine != 1 {
		t.Errorf("StartLine = %d, want default 1", v.StartLine)
	}
}

func TestParseSkillResult_FileEdit(t *testing.T) {
	r := parseSkillResult(gjson.Parse(`{"type":"text_editor_code_execution_edit_result","path":"/tmp/a.py","old_content":"x=1","new_content":"x=2"}`))
	if r == nil || r.Kind != api.ResultFileEdit {
		t.Fatalf("result = %+v, want file_edit", r)
	}
	if r.FileEdit.Path != "/tmp/a.py" || r.FileEdit.NewContent != "x=2" {
		t.Errorf("FileEdit = %+v", r.FileEdit)
	}
}

func TestParseSkillResult_Bash(t *testing.T) {
	r := parseSkillResult(gjson.Parse(`{"type":"bash_code_execution_result","stdout":"ok","stderr":"warn","return_code":2,
		"content":[{"type":"bash_code_execution_output","file_id":"file_1"},{"type":"bash_code_execution_output","file_id":"file_2"}]}`))
	if r == nil || r.Kind != api.ResultBash {
		t.Fatalf("result = %+v, want bash_result", r)
	}
	b := r.Bash
	if b.Stdout != "ok" || b.Stderr != "warn" || b.ExitCode != 2 {
		t.Errorf("Bash = %+v", b)
	}
	if len(b.FileIDs) != 2 || b.FileIDs[0] != "file_1" || b.FileIDs[1] != "file_2" {
		t.Errorf("FileIDs = %v", b.FileIDs)
	}
}

func TestParseSkillResult_BashExitCodeFallback(t *testing.T) {
	r := parseSkillResult(gjson.Parse(`{"type":"bash_code_execution_result","stdout":"","stderr":"","exit_code":127}`))
	if r.Bash.ExitCode != 127 {
		t.Errorf("ExitCode = %d, want 127", r.Bash.ExitCode)
	}
	if r.Bash.FileIDs != nil {
		t.Errorf("FileIDs = %v, want nil", r.Bash.FileIDs)
	}
}

func TestParseSkillResult_Opaque(t *testing.T) {
	long := strings.Repeat("é", 800)
	r := parseSkillResult(gjson.Parse(`{"type":"bash_code_execution_tool_result_error","error_code":"unavailable","detail":"` + long + `"}`))
	if r == nil || r.Kind != api.ResultOpaque {
		t.Fatalf("result = %+v, want opaque", r)
	}
	if r.Opaque.Type != "bash_code_execution_tool_result_error" {
		t.Errorf("Type = %q", r.Opaque.Type)
	}
	if n := utf8.RuneCountInString(r.Opaque.Content); n != api.MaxOpaqueResultLength {
		t.Errorf("content length = %d runes, want %d", n, api.MaxOpaqueResultLength)
	}
	if !strings.HasPrefix(r.Opaque.Content, `{"type":`) {
		t.Errorf("content should start with the raw JSON, got %q", r.Opaque.Content[:20])
	}
}

func TestParseSkillResult_Missing(t *testing.T) {
	if r := parseSkillResult(gjson.Parse(`{}`).Get("content")); r != nil {
		t.Errorf("missing content = %+v, want nil", r)
	}
	if r := parseSkillResult(gjson.Parse(`{"content":null}`).Get("content")); r != nil {
		t.Errorf("null content = %+v, want nil", r)
	}
}

func TestParseContentList(t *testing.T) {
	content := gjson.Parse(`[
		{"type":"text","text":"hello"},
		{"type":"image","source":{"type":"base64","media_type":"image/jpeg","data":"..."}},
		{"type":"image"},
		{"type":"other"}
	]`)

	r := parseContentList(content, true)
	if r == nil || r.Kind != api.ResultContentList {
		t.Fatalf("result = %+v, want content_list", r)
	}
	want := []api.ResultItem{
		{Type: "text", Text: "hello"},
		{Type: "image", MediaType: "image/jpeg"},
		{Type: "image", MediaType: "image/png"},
	}
	if len(r.Items) != len(want) {
		t.Fatalf("Items = %+v, want %+v", r.Items, want)
	}
	for i := range want {
		if r.Items[i] != want[i] {
			t.Errorf("Items[%d] = %+v, want %+v", i, r.Items[i], want[i])
		}
	}

	textOnly := parseContentList(content, false)
	if len(textOnly.Items) != 1 {
		t.Errorf("text-only Items = %+v, want one text item", textOnly.Items)
	}
}

func TestParseContentList_Empty(t *testing.T) {
	if r := parseContentList(gjson.Parse(`[]`), true); r != nil {
		t.Errorf("empty list = %+v, want nil", r)
	}
	obj := gjson.Parse(`{"type":"code_execution_result","stdout":"x","content":[{"type":"code_execution_output","file_id":"f"}]}`)
	if r := parseContentList(obj, true); r != nil {
		t.Errorf("result object without text or image = %+v, want nil", r)
	}
}
