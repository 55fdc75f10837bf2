// Package discover locates the conversation-bearing entry inside an opaque
// key-value table when the key name is unknown or varies by vendor build.
//
// Candidate keys are matched by substring pattern, scored by the structural
// plausibility of their JSON values (list length plus a bonus for
// text-bearing records), and the highest-scoring key wins. When no
// candidate scores, a last-resort scan inspects the largest values in the
// table. A table with no conversation data reports "not found" rather than
// an error.
package discover

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Entry is one key-value pair from an opaque table.
type Entry struct {
	Key   string
	Value string
}

// Table is the minimal read surface discovery needs over an opaque
// key-value store.
type Table interface {
	// KeysLike returns keys containing any of the given substrings,
	// in a stable order.
	KeysLike(patterns []string) ([]string, error)
	// Value returns the stored value for key.
	Value(key string) (string, bool, error)
	// Largest returns up to n entries ordered by descending value size.
	Largest(n int) ([]Entry, error)
}

// Weights tunes the discovery heuristics. The text bonus in particular is
// an empirically chosen constant, so it is configurable rather than fixed.
type Weights struct {
	TextBonus int // added when a list's first record carries a text field
	MaxDepth  int // depth cap for the object-graph search
	ScanLimit int // how many largest values the fallback pass inspects
}

// DefaultWeights returns the tuned defaults.
func DefaultWeights() Weights {
	return Weights{TextBonus: 1000, MaxDepth: 6, ScanLimit: 50}
}

// Key is a discovered conversation key. Score is meaningful only relative
// to other candidates from the same table.
type Key struct {
	Name  string
	Score int
}

// candidatePatterns select keys plausibly associated with conversational
// data.
var candidatePatterns = []string{
	"prompt", "prompts", "ai", "aiService.", "chat", "chat.", "chatHistory",
	"messages", "message", "history", "conversation", "threads", "sessions",
	"kiro",
}

// blacklistPrefixes exclude known-irrelevant namespaces (editor layout and
// UI state).
var blacklistPrefixes = []string{
	"memento/", "workbench.", "terminal", "scm.", "debug.", "vscode.",
	"output.",
}

// containerFields are well-known object fields that may hold the
// conversation list.
var containerFields = []string{
	"prompts", "messages", "items", "history", "chatHistory", "threads",
	"sessions",
}

// textFields mark a record as free-text-bearing.
var textFields = []string{
	"text", "content", "prompt", "message",
	"inputText", "outputText", "body", "textContent",
}

// fallbackFields widen textFields for the last-resort scan, where any
// record-shaped list is worth returning.
var fallbackFields = append([]string{"role", "type"}, textFields...)

// Find returns the best conversation key for the table, or ok=false when
// the table holds no recognizable conversation data.
func Find(t Table, w Weights) (Key, bool) {
	if keys, err := t.KeysLike(candidatePatterns); err == nil {
		best := Key{Score: -1}
		seen := make(map[string]struct{}, len(keys))
		for _, k := range keys {
			if _, dup := seen[k]; dup || Blacklisted(k) {
				continue
			}
			seen[k] = struct{}{}

			raw, ok, err := t.Value(k)
			if err != nil || !ok {
				continue
			}
			// Ties break on first-encountered order via strict >.
			if s := Score(raw, w); s > best.Score {
				best = Key{Name: k, Score: s}
			}
		}
		if best.Score > 0 {
			return best, true
		}
	}

	// Last resort: the conversation key may not match any pattern; probe
	// the largest values directly.
	entries, err := t.Largest(w.ScanLimit)
	if err != nil {
		return Key{}, false
	}
	for _, e := range entries {
		if Blacklisted(e.Key) {
			continue
		}
		if holdsTextRecords(e.Value, w) {
			return Key{Name: e.Key}, true
		}
	}
	return Key{}, false
}

// Blacklisted reports whether key lives in a known-irrelevant namespace.
func Blacklisted(key string) bool {
	for _, p := range blacklistPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// Score rates how plausibly raw holds conversation records. List length is
// the base signal: enumerable turns score higher than singleton UI blobs.
// The text bonus disambiguates equally long lists in favor of ones whose
// records carry free text. Unusable values score negative.
func Score(raw string, w Weights) int {
	if !gjson.Valid(raw) {
		return -1
	}
	v := gjson.Parse(raw)

	switch {
	case v.IsArray():
		return scoreList(v.Array(), w)
	case v.IsObject():
		if list, ok := containerList(v); ok {
			return scoreList(list, w)
		}
		if n := deepListLen(v, w.MaxDepth); n > 0 {
			return n + w.TextBonus
		}
		return 0
	default:
		return 0
	}
}

// Records extracts the conversation list from a discovered value: a
// top-level list, a well-known container field, or the longest
// text-bearing list found by bounded deep search.
func Records(raw string, w Weights) []json.RawMessage {
	if !gjson.Valid(raw) {
		return nil
	}
	v := gjson.Parse(raw)

	switch {
	case v.IsArray():
		return rawElems(v)
	case v.IsObject():
		if list, ok := containerList(v); ok {
			out := make([]json.RawMessage, 0, len(list))
			for _, el := range list {
				out = append(out, json.RawMessage(el.Raw))
			}
			return out
		}
		if best := deepList(v, w.MaxDepth); best != nil {
			out := make([]json.RawMessage, 0, len(best))
			for _, el := range best {
				out = append(out, json.RawMessage(el.Raw))
			}
			return out
		}
	}
	return nil
}

func scoreList(list []gjson.Result, w Weights) int {
	score := len(list)
	if len(list) > 0 && list[0].IsObject() && hasAnyField(list[0], textFields) {
		score += w.TextBonus
	}
	return score
}

// containerList returns the first non-empty list stored under a well-known
// container field, unwrapping double-encoded JSON strings.
func containerList(v gjson.Result) ([]gjson.Result, bool) {
	for _, f := range containerFields {
		c := v.Get(f)
		if c.Type == gjson.String {
			s := strings.TrimSpace(c.Str)
			if strings.HasPrefix(s, "[") && gjson.Valid(s) {
				c = gjson.Parse(s)
			}
		}
		if c.IsArray() {
			if list := c.Array(); len(list) > 0 {
				return list, true
			}
		}
	}
	return nil, false
}

// deepList searches the object graph up to maxDepth for the longest list
// whose first element is a text-bearing record.
func deepList(v gjson.Result, maxDepth int) []gjson.Result {
	var best []gjson.Result
	var visit func(v gjson.Result, depth int)
	visit = func(v gjson.Result, depth int) {
		if depth > maxDepth {
			return
		}
		switch {
		case v.IsArray():
			list := v.Array()
			if len(list) > len(best) && list[0].IsObject() && hasAnyField(list[0], textFields) {
				best = list
			}
			for _, el := range list {
				visit(el, depth+1)
			}
		case v.IsObject():
			v.ForEach(func(_, val gjson.Result) bool {
				visit(val, depth+1)
				return true
			})
		}
	}
	visit(v, 0)
	return best
}

func deepListLen(v gjson.Result, maxDepth int) int {
	return len(deepList(v, maxDepth))
}

// holdsTextRecords reports whether raw holds a list of record-shaped
// entries, directly, via a container field, or deep in the object graph.
// Used by the fallback scan, which skips scoring.
func holdsTextRecords(raw string, w Weights) bool {
	if !gjson.Valid(raw) {
		return false
	}
	v := gjson.Parse(raw)

	isRecordList := func(list []gjson.Result) bool {
		return len(list) > 0 && list[0].IsObject() && hasAnyField(list[0], fallbackFields)
	}

	switch {
	case v.IsArray():
		return isRecordList(v.Array())
	case v.IsObject():
		if list, ok := containerList(v); ok {
			return isRecordList(list)
		}
		found := false
		var visit func(v gjson.Result, depth int)
		visit = func(v gjson.Result, depth int) {
			if found || depth > w.MaxDepth {
				return
			}
			switch {
			case v.IsArray():
				list := v.Array()
				if isRecordList(list) {
					found = true
					return
				}
				for _, el := range list {
					visit(el, depth+1)
				}
			case v.IsObject():
				v.ForEach(func(_, val gjson.Result) bool {
					visit(val, depth+1)
					return !found
				})
			}
		}
		visit(v, 0)
		return found
	}
	return false
}

func hasAnyField(obj gjson.Result, fields []string) bool {
	for _, f := range fields {
		if obj.Get(f).Exists() {
			return true
		}
	}
	return false
}

func rawElems(v gjson.Result) []json.RawMessage {
	list := v.Array()
	out := make([]json.RawMessage, 0, len(list))
	for _, el := range list {
		out = append(out, json.RawMessage(el.Raw))
	}
	return out
}
