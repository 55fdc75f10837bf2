// Package qwen reads Qwen-style session storage: hash-named project
// directories each holding a chats/ folder of whole-file JSON sessions.
package qwen

import (
	"encoding/json"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hollis/convoview/internal/model"
	"github.com/hollis/convoview/internal/normalize"
	"github.com/hollis/convoview/internal/source"
)

const (
	chatsDir   = "chats"
	sessionExt = ".json"
	shortHash  = 12
)

// pathRefRe matches absolute path references inside message content; the
// first captured component after the user segment names the project.
var pathRefRe = regexp.MustCompile(`/(?:Users|home)/[^/\s"']+/([^/\s"']+)/`)

// systemDirs are path components that never identify a project.
var systemDirs = map[string]bool{
	"Library": true, "Applications": true, "Downloads": true,
	"Desktop": true, "Documents": true, ".qwen": true, ".cache": true,
	".config": true, ".local": true, "tmp": true,
}

// Adapter implements source.Adapter over a Qwen tmp directory.
type Adapter struct {
	baseDir string
}

// New creates an adapter rooted at baseDir. An empty baseDir falls back
// to ~/.qwen/tmp.
func New(baseDir string) *Adapter {
	if baseDir == "" {
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, ".qwen", "tmp")
	}
	return &Adapter{baseDir: baseDir}
}

func (a *Adapter) Kind() source.Kind { return source.Qwen }

func (a *Adapter) Projects() ([]model.Project, error) {
	entries, err := os.ReadDir(a.baseDir)
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
		projects = append(projects, model.Project{
			Name:         e.Name(),
			DisplayName:  a.displayName(e.Name()),
			SessionCount: a.countSessions(e.Name()),
			ModifiedAt:   info.ModTime(),
		})
	}
	return projects, nil
}

func (a *Adapter) countSessions(project string) int {
	entries, err := os.ReadDir(filepath.Join(a.baseDir, project, chatsDir))
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), sessionExt) {
			n++
		}
	}
	return n
}

func (a *Adapter) Sessions(project string) ([]model.Session, error) {
	dir := filepath.Join(a.baseDir, project, chatsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var sessions []model.Session
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sessionExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		msgs := loadMessages(filepath.Join(dir, e.Name()))
		sessions = append(sessions, model.Session{
			ID:           strings.TrimSuffix(e.Name(), sessionExt),
			Size:         info.Size(),
			ModifiedAt:   info.ModTime(),
			MessageCount: len(msgs),
			Title:        deriveTitle(msgs),
		})
	}
	return sessions, nil
}

// Records yields the session's messages list in file order. Whole-file
// parse failures stream nothing; a missing session is likewise empty.
func (a *Adapter) Records(project, session string) (iter.Seq[source.Record], error) {
	path := filepath.Join(a.baseDir, project, chatsDir, session+sessionExt)
	msgs := loadMessages(path)
	return func(yield func(source.Record) bool) {
		for _, m := range msgs {
			if !yield(m) {
				return
			}
		}
	}, nil
}

func (a *Adapter) Decode(rec source.Record, seq int) (model.Message, bool) {
	return normalize.QwenRecord(rec, seq)
}

// loadMessages reads a session file's message list. Files are either a
// bare list or an object with a "messages" field.
func loadMessages(path string) []json.RawMessage {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var msgs []json.RawMessage
	if err := json.Unmarshal(data, &msgs); err == nil {
		return msgs
	}

	var env struct {
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &env); err == nil {
		return env.Messages
	}
	return nil
}

func deriveTitle(msgs []json.RawMessage) string {
	var summary, firstUser string
	for _, m := range msgs {
		v := gjson.ParseBytes(m)
		switch v.Get("type").Str {
		case "summary":
			if summary == "" {
				summary = contentText(v.Get("content"))
			}
		case "user":
			if firstUser == "" {
				firstUser = contentText(v.Get("content"))
			}
		}
		if summary != "" {
			break
		}
	}
	return model.DeriveTitle(summary, firstUser)
}

func contentText(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.Str
	}
	if content.IsArray() {
		for _, item := range content.Array() {
			if t := strings.TrimSpace(item.Get("text").Str); t != "" {
				return t
			}
		}
	}
	return ""
}

// displayName resolves a human-readable name for a hash-named project:
// the QWEN.md heading if present, else the most common project path
// referenced in recent chats, else a shortened hash.
func (a *Adapter) displayName(hash string) string {
	dir := filepath.Join(a.baseDir, hash)

	if data, err := os.ReadFile(filepath.Join(dir, "QWEN.md")); err == nil {
		if line, _, _ := strings.Cut(string(data), "\n"); line != "" {
			if title := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "#")); title != "" {
				return title
			}
		}
	}

	if name := a.grepProjectName(dir); name != "" {
		return name
	}

	if len(hash) > shortHash {
		return hash[:shortHash]
	}
	return hash
}

// grepProjectName scans recent chat files for absolute path references
// and returns the most frequently named project component.
func (a *Adapter) grepProjectName(dir string) string {
	entries, err := os.ReadDir(filepath.Join(dir, chatsDir))
	if err != nil {
		return ""
	}

	counts := make(map[string]int)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sessionExt) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, chatsDir, e.Name()))
		if err != nil {
			continue
		}
		for _, m := range pathRefRe.FindAllStringSubmatch(string(data), -1) {
			if name := m[1]; !systemDirs[name] && !strings.HasPrefix(name, ".") {
				counts[name]++
			}
		}
	}
	if len(counts) == 0 {
		return ""
	}

	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	// Highest count wins; ties break alphabetically so the choice is
	// stable across runs.
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	return names[0]
}
