// Package kiro reads Kiro session storage, which splits a project across
// two trees: workspaceStorage/<hash>/workspace.json names the project
// folder, and globalStorage's workspace-sessions holds the chat data
// under a base64-derived encoding of that folder path.
package kiro

import (
	"encoding/base64"
	"encoding/json"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hollis/convoview/internal/model"
	"github.com/hollis/convoview/internal/normalize"
	"github.com/hollis/convoview/internal/source"
)

const (
	workspaceManifest = "workspace.json"
	sessionIndexFile  = "sessions.json"
	sessionExt        = ".json"
)

// Adapter implements source.Adapter over the Kiro workspaceStorage and
// workspace-sessions directory pair.
type Adapter struct {
	workspaceDir string
	sessionsDir  string
}

// New creates an adapter over the given directory pair. Empty arguments
// fall back to the per-user defaults.
func New(workspaceDir, sessionsDir string) *Adapter {
	home, _ := os.UserHomeDir()
	support := filepath.Join(home, "Library", "Application Support", "Kiro", "User")
	if workspaceDir == "" {
		workspaceDir = filepath.Join(support, "workspaceStorage")
	}
	if sessionsDir == "" {
		sessionsDir = filepath.Join(support, "globalStorage", "kiro.kiroagent", "workspace-sessions")
	}
	return &Adapter{workspaceDir: workspaceDir, sessionsDir: sessionsDir}
}

func (a *Adapter) Kind() source.Kind { return source.Kiro }

func (a *Adapter) Projects() ([]model.Project, error) {
	entries, err := os.ReadDir(a.workspaceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var projects []model.Project
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		folder, ok := a.folderPath(e.Name())
		if !ok {
			continue
		}
		projects = append(projects, model.Project{
			Name:         e.Name(),
			DisplayName:  displayName(folder, e.Name()),
			SessionCount: len(a.sessionIndex(folder)),
			ModifiedAt:   info.ModTime(),
		})
	}
	return projects, nil
}

func (a *Adapter) Sessions(project string) ([]model.Session, error) {
	folder, ok := a.folderPath(project)
	if !ok {
		return nil, nil
	}

	dir := filepath.Join(a.sessionsDir, PathKey(folder))
	var sessions []model.Session
	for _, entry := range a.sessionIndex(folder) {
		path := filepath.Join(dir, entry.SessionID+sessionExt)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		title := entry.Title
		if strings.TrimSpace(title) == "" {
			title = "Untitled Session"
		}
		sessions = append(sessions, model.Session{
			ID:           entry.SessionID,
			Size:         info.Size(),
			ModifiedAt:   info.ModTime(),
			MessageCount: len(loadHistory(path)),
			Title:        model.TruncateTitle(title, model.TitleMaxLen),
		})
	}
	return sessions, nil
}

// Records yields the session's history entries in file order.
func (a *Adapter) Records(project, session string) (iter.Seq[source.Record], error) {
	folder, ok := a.folderPath(project)
	if !ok {
		return source.EmptySeq, nil
	}
	path := filepath.Join(a.sessionsDir, PathKey(folder), session+sessionExt)
	history := loadHistory(path)
	return func(yield func(source.Record) bool) {
		for _, h := range history {
			if !yield(h) {
				return
			}
		}
	}, nil
}

func (a *Adapter) Decode(rec source.Record, seq int) (model.Message, bool) {
	return normalize.KiroRecord(rec, seq)
}

// indexEntry is one record of a workspace's sessions.json.
type indexEntry struct {
	SessionID string `json:"sessionId"`
	Title     string `json:"title"`
}

func (a *Adapter) sessionIndex(folder string) []indexEntry {
	data, err := os.ReadFile(filepath.Join(a.sessionsDir, PathKey(folder), sessionIndexFile))
	if err != nil {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	var entries []indexEntry
	for _, r := range raw {
		var e indexEntry
		if err := json.Unmarshal(r, &e); err != nil || e.SessionID == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// folderPath reads the project folder path from the workspace manifest.
func (a *Adapter) folderPath(project string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(a.workspaceDir, project, workspaceManifest))
	if err != nil {
		return "", false
	}
	uri := gjson.GetBytes(data, "folder").Str
	if uri == "" {
		return "", false
	}
	return strings.TrimPrefix(uri, "file://"), true
}

func loadHistory(path string) []json.RawMessage {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var env struct {
		History []json.RawMessage `json:"history"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}
	return env.History
}

// PathKey converts a folder path into the session directory name: the
// path's base64 form with '=' padding stripped and a trailing underscore
// run encoding how many padding characters were removed. The mapping is
// reversible via KeyPath.
func PathKey(path string) string {
	b := []byte(path)
	enc := strings.TrimRight(base64.StdEncoding.EncodeToString(b), "=")
	switch (3 - len(b)%3) % 3 {
	case 1:
		enc += "__"
	case 2:
		enc += "_"
	}
	return enc
}

// KeyPath reverses PathKey. ok=false means key is not a valid encoding.
func KeyPath(key string) (string, bool) {
	var pad string
	switch {
	case strings.HasSuffix(key, "__"):
		key = strings.TrimSuffix(key, "__")
		pad = "="
	case strings.HasSuffix(key, "_"):
		key = strings.TrimSuffix(key, "_")
		pad = "=="
	}
	b, err := base64.StdEncoding.DecodeString(key + pad)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// displayName keeps the last three components of the folder path.
func displayName(folder, fallback string) string {
	var kept []string
	for _, p := range strings.Split(folder, "/") {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return fallback
	}
	if len(kept) > 3 {
		kept = kept[len(kept)-3:]
	}
	return strings.Join(kept, "/")
}
