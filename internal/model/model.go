// Package model defines the canonical, source-independent representation
// of conversation data that every adapter must produce.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Kind classifies a canonical message.
type Kind string

const (
	KindSummary Kind = "summary" // vendor-generated session digest
	KindMessage Kind = "message" // conversational turn
	KindOther   Kind = "other"   // unrecognized payload preserved as raw text
)

// Role identifies the speaker of a conversational turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TitleMaxLen bounds derived session titles.
const TitleMaxLen = 100

// Message is the normalized unit all adapters emit. Seq is the 1-based
// position within the session and is stable across re-reads of the same
// source; external collaborators hash on it for bookmark matching.
type Message struct {
	Seq       int    `json:"seq" yaml:"seq"`
	Kind      Kind   `json:"kind" yaml:"kind"`
	Role      Role   `json:"role,omitempty" yaml:"role,omitempty"`
	Content   string `json:"content" yaml:"content"`
	HasCode   bool   `json:"hasCode,omitempty" yaml:"hasCode,omitempty"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"` // vendor-supplied, may be empty
}

// Validate reports whether the message satisfies the model invariants.
func (m Message) Validate() error {
	if m.Seq < 1 {
		return fmt.Errorf("message seq %d: must be >= 1", m.Seq)
	}
	switch m.Kind {
	case KindSummary, KindMessage, KindOther:
	default:
		return fmt.Errorf("message seq %d: unknown kind %q", m.Seq, m.Kind)
	}
	if m.Role != "" {
		if m.Kind != KindMessage {
			return fmt.Errorf("message seq %d: role %q requires kind %q", m.Seq, m.Role, KindMessage)
		}
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("message seq %d: unknown role %q", m.Seq, m.Role)
		}
	}
	return nil
}

// Session is one conversation thread within a project.
type Session struct {
	ID           string    `json:"id"`
	Size         int64     `json:"size"`
	ModifiedAt   time.Time `json:"modifiedAt"`
	MessageCount int       `json:"messageCount"`
	Title        string    `json:"title"`
}

// Project is a logical grouping of sessions for one source.
type Project struct {
	Name         string    `json:"name"`        // storage-native directory or hash
	DisplayName  string    `json:"displayName"` // best-effort human-readable form
	SessionCount int       `json:"sessionCount"`
	ModifiedAt   time.Time `json:"modifiedAt"`
}

// DeriveTitle picks a session title: summary text if present, else the
// first user message, else a fixed placeholder. The result is truncated
// to TitleMaxLen.
func DeriveTitle(summary, firstUserMessage string) string {
	if s := strings.TrimSpace(summary); s != "" {
		return TruncateTitle(s, TitleMaxLen)
	}
	if s := strings.TrimSpace(firstUserMessage); s != "" {
		return TruncateTitle(s, TitleMaxLen)
	}
	return "Untitled Session"
}

// TruncateTitle flattens newlines and bounds s to maxLen bytes.
func TruncateTitle(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
