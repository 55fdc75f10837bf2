package normalize

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hollis/convoview/internal/model"
)

// textFieldChain is the ordered set of free-text fields probed on an
// opaque-table record before falling back to a deep search.
var textFieldChain = []string{
	"content", "text", "prompt", "message",
	"inputText", "outputText", "body", "textContent",
}

// deepTextKeys name fields whose string values count as message text
// during the bounded deep search.
var deepTextKeys = []string{
	"content", "text", "prompt", "message", "inputText", "outputText",
	"body", "textContent", "query", "question", "request",
	"description", "desc", "title",
}

// deepTextMaxDepth bounds the object-graph walk when no direct text field
// is present.
const deepTextMaxDepth = 6

// TableRecord normalizes one record pulled out of an opaque key-value
// table. Record shapes vary by vendor build, so every field access is
// best-effort: the payload may be nested under "value", double-encoded as
// a JSON string, and the text and role fields have no fixed names.
// Records with no recoverable text report ok=false.
func TableRecord(raw json.RawMessage, seq int) (model.Message, bool) {
	item := parseMaybe(gjson.ParseBytes(raw))

	payload := item
	if v := item.Get("value"); v.Exists() {
		payload = parseMaybe(v)
	}

	if !payload.IsObject() {
		content := payload.String()
		if strings.TrimSpace(content) == "" {
			return model.Message{}, false
		}
		return model.Message{
			Seq:     seq,
			Kind:    model.KindMessage,
			Role:    model.RoleAssistant,
			Content: content,
			HasCode: HasCode(content),
		}, true
	}

	content := tableText(payload)
	if strings.TrimSpace(content) == "" {
		return model.Message{}, false
	}

	ts := payload.Get("timestamp").String()
	if ts == "" {
		ts = payload.Get("time").String()
	}
	if ts == "" {
		ts = item.Get("timestamp").String()
	}

	if payload.Get("type").Str == "summary" {
		return model.Message{
			Seq:       seq,
			Kind:      model.KindSummary,
			Content:   content,
			Timestamp: ts,
		}, true
	}

	return model.Message{
		Seq:       seq,
		Kind:      model.KindMessage,
		Role:      tableRole(payload),
		Content:   content,
		HasCode:   HasCode(content),
		Timestamp: ts,
	}, true
}

// tableText resolves the record's text via the field chain, then a
// bounded deep search of the object graph.
func tableText(payload gjson.Result) string {
	for _, field := range textFieldChain {
		v := payload.Get(field)
		switch {
		case v.Type == gjson.String && v.Str != "":
			return v.Str
		case v.IsArray():
			var parts []string
			v.ForEach(func(_, el gjson.Result) bool {
				parts = append(parts, el.String())
				return true
			})
			if joined := strings.Join(parts, "\n\n"); strings.TrimSpace(joined) != "" {
				return joined
			}
		}
	}
	return deepText(payload, deepTextMaxDepth)
}

// tableRole infers the speaker when no explicit role field exists.
func tableRole(payload gjson.Result) model.Role {
	if r := payload.Get("role").Str; r != "" {
		if r == string(model.RoleUser) {
			return model.RoleUser
		}
		return model.RoleAssistant
	}
	if from := payload.Get("from"); from.Exists() {
		if strings.EqualFold(from.String(), "user") {
			return model.RoleUser
		}
		return model.RoleAssistant
	}
	if isUser := payload.Get("isUser"); isUser.Exists() {
		if isUser.Bool() {
			return model.RoleUser
		}
		return model.RoleAssistant
	}
	if payload.Get("outputText").Str != "" {
		return model.RoleAssistant
	}
	return model.RoleUser
}

// deepText walks the object graph up to maxDepth and returns the longest
// non-empty string stored under a text-like field name.
func deepText(v gjson.Result, maxDepth int) string {
	best := ""
	var visit func(v gjson.Result, depth int)
	visit = func(v gjson.Result, depth int) {
		if depth > maxDepth {
			return
		}
		switch {
		case v.IsObject():
			v.ForEach(func(key, val gjson.Result) bool {
				if val.Type == gjson.String && strings.TrimSpace(val.Str) != "" &&
					deepTextKey(key.Str) && len(val.Str) > len(best) {
					best = val.Str
				}
				visit(val, depth+1)
				return true
			})
		case v.IsArray():
			v.ForEach(func(_, val gjson.Result) bool {
				visit(val, depth+1)
				return true
			})
		}
	}
	visit(v, 0)
	return best
}

func deepTextKey(key string) bool {
	for _, k := range deepTextKeys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}

// parseMaybe unwraps values that are themselves JSON encoded as a string.
func parseMaybe(v gjson.Result) gjson.Result {
	if v.Type != gjson.String {
		return v
	}
	s := strings.TrimSpace(v.Str)
	if (strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")) ||
		(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")) {
		if gjson.Valid(s) {
			return gjson.Parse(s)
		}
	}
	return v
}
