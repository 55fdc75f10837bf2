package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/hollis/convoview/internal/model"
)

func TestHasCode(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"fenced block", "```python\nprint(1)\n```", true},
		{"plain prose", "let's discuss the architecture at a high level", false},
		{"python def", "def handler(req):", true},
		{"import", "import os", true},
		{"html tag", "see <div class=\"x\"> for details", true},
		{"shell", "$ make build", true},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCode(tt.content); got != tt.want {
				t.Errorf("HasCode(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestClaudeRecordSummary(t *testing.T) {
	raw := json.RawMessage(`{"type":"summary","summary":"Fixed the login bug","leafUuid":"abc"}`)
	msg, ok := ClaudeRecord(raw, 1)
	if !ok {
		t.Fatal("expected ok")
	}
	if msg.Kind != model.KindSummary || msg.Content != "Fixed the login bug" {
		t.Errorf("got %+v", msg)
	}
	if msg.Role != "" {
		t.Errorf("summary should carry no role, got %q", msg.Role)
	}
}

func TestClaudeRecordUserMessage(t *testing.T) {
	raw := json.RawMessage(`{"type":"user","timestamp":"2025-03-01T10:00:00Z","message":{"content":"hello there"}}`)
	msg, ok := ClaudeRecord(raw, 3)
	if !ok {
		t.Fatal("expected ok")
	}
	if msg.Seq != 3 || msg.Kind != model.KindMessage || msg.Role != model.RoleUser {
		t.Errorf("got %+v", msg)
	}
	if msg.Content != "hello there" || msg.Timestamp != "2025-03-01T10:00:00Z" {
		t.Errorf("got %+v", msg)
	}
}

func TestClaudeRecordLegacyRole(t *testing.T) {
	raw := json.RawMessage(`{"role":"assistant","content":"sure thing"}`)
	msg, ok := ClaudeRecord(raw, 2)
	if !ok || msg.Role != model.RoleAssistant || msg.Content != "sure thing" {
		t.Errorf("got %+v, ok=%v", msg, ok)
	}
}

func TestClaudeRecordOtherPreservedAsPrettyJSON(t *testing.T) {
	raw := json.RawMessage(`{"type":"system","subtype":"init","cwd":"/tmp"}`)
	msg, ok := ClaudeRecord(raw, 1)
	if !ok || msg.Kind != model.KindOther {
		t.Fatalf("got %+v, ok=%v", msg, ok)
	}
	if !strings.Contains(msg.Content, `"subtype": "init"`) {
		t.Errorf("other content should be pretty-printed raw JSON, got %q", msg.Content)
	}
}

func TestClaudeRecordMalformed(t *testing.T) {
	if _, ok := ClaudeRecord(json.RawMessage(`{not json`), 1); ok {
		t.Error("malformed record should not decode")
	}
}

func TestFlattenContentTextAndImage(t *testing.T) {
	raw := json.RawMessage(`[{"type":"text","text":"line one\nline two"},{"type":"image","source":{}}]`)
	got := FlattenContent(raw)
	want := "line one\nline two\n\n" + imagePlaceholder
	if got != want {
		t.Errorf("FlattenContent = %q, want %q", got, want)
	}
}

func TestToolUseGenericParams(t *testing.T) {
	long := strings.Repeat("a", 150)
	raw := json.RawMessage(fmt.Sprintf(`[{"type":"tool_use","name":"Bash","input":{"command":"%s","timeout":5000}}]`, long))
	got := FlattenContent(raw)

	if !strings.Contains(got, "🔧 **Tool Used: Bash**") {
		t.Errorf("missing tool label: %q", got)
	}
	if !strings.Contains(got, "  **command**: "+strings.Repeat("a", 100)+"...") {
		t.Error("long string param should be truncated at 100 chars with ellipsis")
	}
	if !strings.Contains(got, "  **timeout**: 5000") {
		t.Error("non-string param should render raw")
	}
}

func TestToolUseNoParams(t *testing.T) {
	raw := json.RawMessage(`[{"type":"tool_use","name":"ListFiles","input":{}}]`)
	if got := FlattenContent(raw); !strings.Contains(got, "(no parameters)") {
		t.Errorf("got %q", got)
	}
}

func TestToolUseEditRendersDiff(t *testing.T) {
	raw := json.RawMessage(`[{"type":"tool_use","name":"Edit","input":{"file_path":"main.go","old_string":"a\nb\n","new_string":"a\nc\n"}}]`)
	got := FlattenContent(raw)

	if !strings.Contains(got, "✏️ **Edit Tool: main.go**") {
		t.Errorf("missing edit label: %q", got)
	}
	if !strings.Contains(got, "diff-removed") || !strings.Contains(got, "diff-added") {
		t.Error("edit tool call should render a diff, not a parameter dump")
	}
	if strings.Contains(got, "**old_string**") {
		t.Error("edit tool call should not dump raw parameters")
	}
}

func TestToolResultEditWithSecondaryOutput(t *testing.T) {
	raw := json.RawMessage(`[{"type":"tool_result","content":"applied 1 edit","toolUseResult":{"filePath":"x.py","oldString":"old\n","newString":"new\n"}}]`)
	got := FlattenContent(raw)

	if !strings.Contains(got, "✅ **Edit Result: x.py**") {
		t.Errorf("missing edit result label: %q", got)
	}
	if !strings.Contains(got, "📋 **Tool Output:**\n```\napplied 1 edit\n```") {
		t.Error("non-empty raw output should be appended as a secondary block")
	}
}

func TestToolResultUpstreamTruncationPassesThrough(t *testing.T) {
	out := "partial result\n... (output truncated)"
	raw, _ := json.Marshal([]map[string]any{{"type": "tool_result", "content": out}})
	got := FlattenContent(raw)
	if !strings.Contains(got, out) {
		t.Errorf("upstream-truncated output should pass through, got %q", got)
	}
	if strings.Contains(got, "truncated by viewer") {
		t.Error("should not re-truncate upstream-truncated output")
	}
}

func TestToolResultLongOutputTruncated(t *testing.T) {
	long := strings.Repeat("x", outputTruncateLen+500)
	raw, _ := json.Marshal([]map[string]any{{"type": "tool_result", "content": long}})
	got := FlattenContent(raw)
	if !strings.Contains(got, "(output truncated by viewer)") {
		t.Error("long output should be truncated with viewer marker")
	}
	if strings.Contains(got, long) {
		t.Error("full output should not survive truncation")
	}
}

func TestToolResultNonStringDumpedAsJSON(t *testing.T) {
	raw := json.RawMessage(`[{"type":"tool_result","content":{"exitCode":0,"stdout":"ok"}}]`)
	got := FlattenContent(raw)
	if !strings.Contains(got, "```json") || !strings.Contains(got, `"exitCode": 0`) {
		t.Errorf("non-string result should be pretty JSON in a fence, got %q", got)
	}
}

func TestUnknownItemTypeNeverDropped(t *testing.T) {
	raw := json.RawMessage(`[{"type":"thinking","thinking":"hmm"}]`)
	got := FlattenContent(raw)
	if !strings.Contains(got, "ℹ️ **thinking:**") || !strings.Contains(got, `"thinking": "hmm"`) {
		t.Errorf("unknown item should be labeled and dumped, got %q", got)
	}
}

func TestTableRecordFieldChain(t *testing.T) {
	raw := json.RawMessage(`{"text":"how do I sort a map?","role":"user"}`)
	msg, ok := TableRecord(raw, 1)
	if !ok || msg.Role != model.RoleUser || msg.Content != "how do I sort a map?" {
		t.Errorf("got %+v, ok=%v", msg, ok)
	}
}

func TestTableRecordRoleInference(t *testing.T) {
	tests := []struct {
		raw  string
		want model.Role
	}{
		{`{"text":"hi","from":"USER"}`, model.RoleUser},
		{`{"text":"hi","from":"bot"}`, model.RoleAssistant},
		{`{"text":"hi","isUser":true}`, model.RoleUser},
		{`{"text":"hi","isUser":false}`, model.RoleAssistant},
		{`{"outputText":"answer"}`, model.RoleAssistant},
		{`{"inputText":"question"}`, model.RoleUser},
	}
	for _, tt := range tests {
		msg, ok := TableRecord(json.RawMessage(tt.raw), 1)
		if !ok || msg.Role != tt.want {
			t.Errorf("TableRecord(%s) role = %q, ok=%v; want %q", tt.raw, msg.Role, ok, tt.want)
		}
	}
}

func TestTableRecordNestedValuePayload(t *testing.T) {
	raw := json.RawMessage(`{"value":"{\"prompt\":\"explain channels\",\"isUser\":true}","timestamp":"123"}`)
	msg, ok := TableRecord(raw, 2)
	if !ok || msg.Content != "explain channels" || msg.Role != model.RoleUser {
		t.Errorf("got %+v, ok=%v", msg, ok)
	}
	if msg.Timestamp != "123" {
		t.Errorf("timestamp should fall back to the item level, got %q", msg.Timestamp)
	}
}

func TestTableRecordDeepTextFallback(t *testing.T) {
	raw := json.RawMessage(`{"meta":{"nested":{"description":"find the longest text here"}},"id":7}`)
	msg, ok := TableRecord(raw, 1)
	if !ok || msg.Content != "find the longest text here" {
		t.Errorf("deep search should recover text, got %+v, ok=%v", msg, ok)
	}
}

func TestTableRecordEmptySkipped(t *testing.T) {
	if _, ok := TableRecord(json.RawMessage(`{"id":1,"count":42}`), 1); ok {
		t.Error("record with no recoverable text should be skipped")
	}
}

func TestDecodeDeterminism(t *testing.T) {
	raw := json.RawMessage(`{"type":"assistant","message":{"content":[{"type":"text","text":"first"},{"type":"tool_use","name":"Bash","input":{"command":"ls","cwd":"/tmp"}}]}}`)
	a, okA := ClaudeRecord(raw, 5)
	b, okB := ClaudeRecord(raw, 5)
	if !okA || !okB {
		t.Fatal("decode failed")
	}
	if a != b {
		t.Errorf("re-decoding the same record must be byte-identical:\n%+v\n%+v", a, b)
	}
}
