package stream

import (
	"strings"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

// BlockKind classifies an upstream content block.
type BlockKind int

const (
	KindUnknown BlockKind = iota
	KindText
	KindToolInvocation
	KindServerToolInvocation
	KindToolResult
	KindSkillResult
	KindServerToolResult
)

var kindNames = [...]string{
	KindUnknown:              "unknown",
	KindText:                 "text",
	KindToolInvocation:       "tool_invocation",
	KindServerToolInvocation: "server_tool_invocation",
	KindToolResult:           "tool_result",
	KindSkillResult:          "skill_result",
	KindServerToolResult:     "server_tool_result",
}

func (k BlockKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsStep reports whether blocks of this kind consume a step number.
func (k BlockKind) IsStep() bool {
	return k == KindToolInvocation || k == KindServerToolInvocation
}

// Upstream block types with dedicated handling.
const (
	blockText                = "text"
	blockToolUse             = "tool_use"
	blockServerToolUse       = "server_tool_use"
	blockCodeExecutionResult = "code_execution_tool_result"
	blockServerToolResult    = "server_tool_result"
	blockBashResult          = "bash_code_execution_tool_result"
	blockTextEditorResult    = "text_editor_code_execution_tool_result"

	unknownBlockType = "unknown"
	toolResultSuffix = "_tool_result"
)

// ClassifyBlock maps an upstream block type to its kind. Types without
// dedicated handling are KindUnknown and pass through as generic content.
func ClassifyBlock(typ string) BlockKind {
	switch typ {
	case blockText:
		return KindText
	case blockToolUse:
		return KindToolInvocation
	case blockServerToolUse:
		return KindServerToolInvocation
	case blockCodeExecutionResult:
		return KindToolResult
	case blockServerToolResult:
		return KindServerToolResult
	case blockBashResult, blockTextEditorResult:
		return KindSkillResult
	default:
		return KindUnknown
	}
}

// resultType is the result_type reported for skill result blocks, e.g.
// "bash_code_execution" for "bash_code_execution_tool_result".
func resultType(blockType string) string {
	return strings.TrimSuffix(blockType, toolResultSuffix)
}

// Block is one content block between its start and stop events.
type Block struct {
	Index int
	Kind  BlockKind
	// Type is the upstream block type string.
	Type string
	ID   string
	Name string
	// Result is the parsed result of a result block, attached at start.
	Result *api.Result
}

// BlockTracker maps block indexes to live blocks for one session.
// It is not safe for concurrent use.
type BlockTracker struct {
	blocks map[int]*Block
}

// NewBlockTracker returns an empty tracker.
func NewBlockTracker() *BlockTracker {
	return &BlockTracker{blocks: make(map[int]*Block)}
}

// Start registers a block at index. A block already registered at the
// same index is replaced.
func (t *BlockTracker) Start(index int, kind BlockKind, typ, id, name string) *Block {
	b := &Block{Index: index, Kind: kind, Type: typ, ID: id, Name: name}
	t.blocks[index] = b
	return b
}

// Attach stores a parsed result on the block at index, if any.
func (t *BlockTracker) Attach(index int, result *api.Result) {
	if b, ok := t.blocks[index]; ok {
		b.Result = result
	}
}

// Get returns the live block at index.
func (t *BlockTracker) Get(index int) (*Block, bool) {
	b, ok := t.blocks[index]
	return b, ok
}

// Stop removes and returns the block at index. When no block is
// registered there, a synthetic unknown block is returned.
func (t *BlockTracker) Stop(index int) *Block {
	b, ok := t.blocks[index]
	if !ok {
		return &Block{Index: index, Kind: KindUnknown, Type: unknownBlockType}
	}
	delete(t.blocks, index)
	return b
}

// Open returns the number of blocks started but not yet stopped.
func (t *BlockTracker) Open() int {
	return len(t.blocks)
}
