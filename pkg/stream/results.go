package stream

import (
	"github.com/tidwall/gjson"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

// Nested result content types produced by skill tools.
const (
	contentFileView = "text_editor_code_execution_view_result"
	contentFileEdit = "text_editor_code_execution_edit_result"
	contentBash     = "bash_code_execution_result"

	defaultImageMediaType = "image/png"
)

// parseContentList reads a code-execution or server-tool result into a
// content list. Image items are kept only when images is set. It returns
// nil when no item survives.
func parseContentList(content gjson.Result, images bool) *api.Result {
	items := content
	if content.IsObject() {
		items = content.Get("content")
	}

	var out []api.ResultItem
	for _, item := range items.Array() {
		switch item.Get("type").String() {
		case "text":
			out = append(out, api.ResultItem{Type: "text", Text: item.Get("text").String()})
		case "image":
			if !images {
				continue
			}
			mediaType := item.Get("source.media_type").String()
			if mediaType == "" {
				mediaType = defaultImageMediaType
			}
			out = append(out, api.ResultItem{Type: "image", MediaType: mediaType})
		}
	}
	if len(out) == 0 {
		return nil
	}
	return &api.Result{Kind: api.ResultContentList, Items: out}
}

// parseSkillResult reads the nested content of a bash or text editor
// result block. Unrecognized shapes become an opaque result holding the
// raw JSON, truncated. A missing or null content yields nil.
func parseSkillResult(content gjson.Result) *api.Result {
	if !content.Exists() || content.Type == gjson.Null {
		return nil
	}

	typ := content.Get("type").String()
	switch typ {
	case contentFileView:
		fileType := content.Get("file_type").String()
		if fileType == "" {
			fileType = "text"
		}
		startLine := 1
		if v := content.Get("start_line"); v.Exists() && v.Type != gjson.Null {
			startLine = int(v.Int())
		}
		return &api.Result{Kind: api.ResultFileView, FileView: &api.FileViewResult{
			Content:    content.Get("content").String(),
			FileType:   fileType,
			NumLines:   int(content.Get("num_lines").Int()),
			StartLine:  startLine,
			TotalLines: int(content.Get("total_lines").Int()),
		}}

	case contentFileEdit:
		return &api.Result{Kind: api.ResultFileEdit, FileEdit: &api.FileEditResult{
			Path:       content.Get("path").String(),
			OldContent: content.Get("old_content").String(),
			NewContent: content.Get("new_content").String(),
		}}

	case contentBash:
		var fileIDs []string
		for _, item := range content.Get("content").Array() {
			if id := item.Get("file_id").String(); id != "" {
				fileIDs = append(fileIDs, id)
			}
		}
		exitCode := content.Get("return_code")
		if !exitCode.Exists() {
			exitCode = content.Get("exit_code")
		}
		return &api.Result{Kind: api.ResultBash, Bash: &api.BashResult{
			Stdout:   content.Get("stdout").String(),
			Stderr:   content.Get("stderr").String(),
			ExitCode: int(exitCode.Int()),
			FileIDs:  fileIDs,
		}}

	default:
		if typ == "" {
			typ = unknownBlockType
		}
		return api.NewOpaqueResult(typ, content.Raw)
	}
}
