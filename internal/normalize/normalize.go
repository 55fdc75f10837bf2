// Package normalize converts vendor-specific raw conversation records into
// canonical messages, flattening structured content (text, images, tool
// calls, tool results) into markdown-flavored text.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hollis/convoview/internal/diffview"
	"github.com/hollis/convoview/internal/model"
)

const (
	paramTruncateLen  = 100
	outputTruncateLen = 5000
	imagePlaceholder  = "📷 **[Image attached]**"
	upstreamTruncMark = "... (output truncated)"
	viewerTruncMark   = "\n... (output truncated by viewer)"
)

// ClaudeRecord decodes one line of a Claude-style JSONL session file.
// Unparseable records report ok=false and are skipped by callers.
func ClaudeRecord(raw json.RawMessage, seq int) (model.Message, bool) {
	var env struct {
		Type      string          `json:"type"`
		Timestamp json.RawMessage `json:"timestamp"`
		Summary   string          `json:"summary"`
		Role      string          `json:"role"`
		Content   json.RawMessage `json:"content"`
		Message   struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.Message{}, false
	}

	ts := rawString(env.Timestamp)

	switch {
	case env.Type == "summary":
		return model.Message{
			Seq:       seq,
			Kind:      model.KindSummary,
			Content:   env.Summary,
			Timestamp: ts,
		}, true

	case env.Type == "user" || env.Type == "assistant":
		content := FlattenContent(env.Message.Content)
		return model.Message{
			Seq:       seq,
			Kind:      model.KindMessage,
			Role:      model.Role(env.Type),
			Content:   content,
			HasCode:   HasCode(content),
			Timestamp: ts,
		}, true

	case env.Role == string(model.RoleUser) || env.Role == string(model.RoleAssistant):
		// Legacy format with a top-level role field.
		content := FlattenContent(env.Content)
		return model.Message{
			Seq:       seq,
			Kind:      model.KindMessage,
			Role:      model.Role(env.Role),
			Content:   content,
			HasCode:   HasCode(content),
			Timestamp: ts,
		}, true

	default:
		return model.Message{
			Seq:       seq,
			Kind:      model.KindOther,
			Content:   Pretty(raw),
			Timestamp: ts,
		}, true
	}
}

// QwenRecord decodes one element of a Qwen whole-file session's messages
// list. The vendor role "qwen" maps to assistant.
func QwenRecord(raw json.RawMessage, seq int) (model.Message, bool) {
	var env struct {
		Type      string          `json:"type"`
		Content   json.RawMessage `json:"content"`
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.Message{}, false
	}

	ts := rawString(env.Timestamp)

	switch env.Type {
	case "summary":
		return model.Message{
			Seq:       seq,
			Kind:      model.KindSummary,
			Content:   FlattenContent(env.Content),
			Timestamp: ts,
		}, true
	case "user", "qwen":
		role := model.RoleUser
		if env.Type == "qwen" {
			role = model.RoleAssistant
		}
		content := FlattenContent(env.Content)
		return model.Message{
			Seq:       seq,
			Kind:      model.KindMessage,
			Role:      role,
			Content:   content,
			HasCode:   HasCode(content),
			Timestamp: ts,
		}, true
	default:
		return model.Message{
			Seq:       seq,
			Kind:      model.KindOther,
			Content:   Pretty(raw),
			Timestamp: ts,
		}, true
	}
}

// KiroRecord decodes one entry of a Kiro session's history list. Entries
// nest the payload under a "message" field holding a role and a list of
// content items.
func KiroRecord(raw json.RawMessage, seq int) (model.Message, bool) {
	var env struct {
		Message struct {
			Type    string          `json:"type"`
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.Message{}, false
	}

	if env.Message.Type == "summary" {
		return model.Message{
			Seq:     seq,
			Kind:    model.KindSummary,
			Content: FlattenContent(env.Message.Content),
		}, true
	}

	role := model.RoleAssistant
	if env.Message.Role == string(model.RoleUser) {
		role = model.RoleUser
	}
	content := FlattenContent(env.Message.Content)
	return model.Message{
		Seq:     seq,
		Kind:    model.KindMessage,
		Role:    role,
		Content: content,
		HasCode: HasCode(content),
	}, true
}

// FlattenContent normalizes a record's content field, which may be a bare
// string or a list of typed content items.
func FlattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		return flattenItems(items)
	}

	return Pretty(raw)
}

type contentItem struct {
	Type          string          `json:"type"`
	Text          string          `json:"text"`
	Name          string          `json:"name"`
	Input         json.RawMessage `json:"input"`
	Content       json.RawMessage `json:"content"`
	ToolUseResult json.RawMessage `json:"toolUseResult"`
}

// flattenItems renders each typed content item and joins the resulting
// blocks with blank lines, preserving original item order.
func flattenItems(items []json.RawMessage) string {
	var parts []string
	for _, raw := range items {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			parts = append(parts, s)
			continue
		}

		var item contentItem
		if err := json.Unmarshal(raw, &item); err != nil {
			parts = append(parts, string(raw))
			continue
		}

		switch item.Type {
		case "text":
			// verbatim; line breaks preserved
			parts = append(parts, item.Text)
		case "image":
			parts = append(parts, imagePlaceholder)
		case "tool_use":
			parts = append(parts, renderToolUse(item))
		case "tool_result":
			parts = append(parts, renderToolResult(item)...)
		default:
			kind := item.Type
			if kind == "" {
				kind = "Unknown"
			}
			parts = append(parts, fmt.Sprintf("ℹ️ **%s:**\n```json\n%s\n```", kind, Pretty(raw)))
		}
	}
	return strings.Join(parts, "\n\n")
}

// renderToolUse formats a tool call as a labeled block. Edit-style calls
// carrying an old/new string pair render as a diff against the target file
// instead of a parameter dump.
func renderToolUse(item contentItem) string {
	name := item.Name
	if name == "" {
		name = "unknown_tool"
	}
	input := gjson.ParseBytes(item.Input)

	oldStr := input.Get("old_string")
	newStr := input.Get("new_string")
	if name == "Edit" && oldStr.Str != "" && newStr.Str != "" {
		path := input.Get("file_path").Str
		if path == "" {
			path = "unknown_file"
		}
		return fmt.Sprintf("✏️ **Edit Tool: %s**\n%s", path, diffview.Render(oldStr.Str, newStr.Str, path))
	}

	var lines []string
	input.ForEach(func(key, value gjson.Result) bool {
		v := value.String()
		if value.Type == gjson.String && len(v) > paramTruncateLen {
			v = v[:paramTruncateLen] + "..."
		}
		lines = append(lines, fmt.Sprintf("  **%s**: %s", key.Str, v))
		return true
	})
	params := "  (no parameters)"
	if len(lines) > 0 {
		params = strings.Join(lines, "\n")
	}
	return fmt.Sprintf("🔧 **Tool Used: %s**\n%s", name, params)
}

// renderToolResult formats a tool result. Results carrying edit-diff
// metadata render as a diff, with the raw textual output appended as a
// secondary block when non-empty.
func renderToolResult(item contentItem) []string {
	result := gjson.ParseBytes(item.ToolUseResult)
	oldStr := result.Get("oldString").Str
	newStr := result.Get("newString").Str

	if oldStr != "" && newStr != "" {
		path := result.Get("filePath").Str
		if path == "" {
			path = "unknown_file"
		}
		parts := []string{
			fmt.Sprintf("✅ **Edit Result: %s**\n%s", path, diffview.Render(oldStr, newStr, path)),
		}
		var out string
		if err := json.Unmarshal(item.Content, &out); err == nil && strings.TrimSpace(out) != "" {
			parts = append(parts, fmt.Sprintf("📋 **Tool Output:**\n```\n%s\n```", out))
		}
		return parts
	}

	var out string
	if err := json.Unmarshal(item.Content, &out); err == nil {
		switch {
		case strings.Contains(out, upstreamTruncMark):
			// already truncated upstream; pass through unchanged
		case len(out) > outputTruncateLen:
			out = out[:outputTruncateLen] + viewerTruncMark
		}
		return []string{fmt.Sprintf("📋 **Tool Output:**\n```\n%s\n```", out)}
	}

	return []string{fmt.Sprintf("📋 **Tool Output:**\n```json\n%s\n```", Pretty(item.Content))}
}

// Pretty re-indents raw JSON preserving key order; invalid input is
// returned verbatim.
func Pretty(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// rawString renders a raw JSON scalar as text, unquoting strings.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
