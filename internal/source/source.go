// Package source defines the contract every vendor storage adapter
// implements, plus the source-kind registry used to select one.
package source

import (
	"encoding/json"
	"fmt"
	"iter"

	"github.com/hollis/convoview/internal/model"
)

// Kind identifies one vendor's conversation-storage convention.
type Kind string

const (
	Claude Kind = "claude" // line-delimited JSON, one file per session
	Qwen   Kind = "qwen"   // whole-file JSON under <hash>/chats/
	Cursor Kind = "cursor" // opaque key-value table (state.vscdb)
	Trae   Kind = "trae"   // opaque key-value table, different vendor keys
	Kiro   Kind = "kiro"   // path-encoded composite mapping to JSON files
)

// Kinds lists all supported source kinds in display order.
func Kinds() []Kind {
	return []Kind{Claude, Qwen, Cursor, Trae, Kiro}
}

// ParseKind validates a source identifier. An unknown identifier is a
// configuration error, the only hard failure in the engine's taxonomy.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Claude, Qwen, Cursor, Trae, Kiro:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unsupported source %q", s)
}

// Record is one raw vendor record, located but not yet normalized.
type Record = json.RawMessage

// Adapter provides read access to one vendor's on-disk conversation data.
// Implementations never mutate source data; any unit that fails to read
// or parse is skipped, and missing projects/sessions yield empty results
// rather than errors.
type Adapter interface {
	Kind() Kind

	// Projects enumerates project groupings, unsorted.
	Projects() ([]model.Project, error)

	// Sessions enumerates the sessions of one project, unsorted.
	Sessions(project string) ([]model.Session, error)

	// Records lazily streams the session's raw records in storage order.
	// Individual records may be malformed; Decode is where they fail.
	Records(project, session string) (iter.Seq[Record], error)

	// Decode normalizes one raw record. ok=false means the record is
	// unusable and must be skipped without aborting the batch; seq is
	// still consumed so positions stay stable across re-reads.
	Decode(rec Record, seq int) (model.Message, bool)
}

// EmptySeq is a Records result with no elements.
func EmptySeq(yield func(Record) bool) {}
