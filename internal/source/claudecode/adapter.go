// Package claudecode reads Claude-style session storage: a projects
// directory of dash-encoded project folders, each holding one JSONL file
// per session.
package claudecode

import (
	"bufio"
	"bytes"
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
	// maxLineBytes bounds a single JSONL line. Tool results embedding
	// whole files can run into the megabytes.
	maxLineBytes = 16 * 1024 * 1024

	sessionExt = ".jsonl"
)

// Adapter implements source.Adapter over a Claude projects directory.
type Adapter struct {
	projectsDir string
}

// New creates an adapter rooted at projectsDir. An empty projectsDir
// falls back to ~/.claude/projects.
func New(projectsDir string) *Adapter {
	if projectsDir == "" {
		home, _ := os.UserHomeDir()
		projectsDir = filepath.Join(home, ".claude", "projects")
	}
	return &Adapter{projectsDir: projectsDir}
}

func (a *Adapter) Kind() source.Kind { return source.Claude }

// Projects lists project directories. A missing projects root is an
// empty result, not an error.
func (a *Adapter) Projects() ([]model.Project, error) {
	entries, err := os.ReadDir(a.projectsDir)
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
			DisplayName:  displayName(e.Name()),
			SessionCount: a.countSessions(e.Name()),
			ModifiedAt:   info.ModTime(),
		})
	}
	return projects, nil
}

func (a *Adapter) countSessions(project string) int {
	entries, err := os.ReadDir(filepath.Join(a.projectsDir, project))
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

// Sessions lists the project's JSONL session files. Files that cannot be
// read are skipped.
func (a *Adapter) Sessions(project string) ([]model.Session, error) {
	dir := filepath.Join(a.projectsDir, project)
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
		path := filepath.Join(dir, e.Name())
		count, title := scanSessionFile(path)
		sessions = append(sessions, model.Session{
			ID:           strings.TrimSuffix(e.Name(), sessionExt),
			Size:         info.Size(),
			ModifiedAt:   info.ModTime(),
			MessageCount: count,
			Title:        title,
		})
	}
	return sessions, nil
}

// Records streams the session file's non-empty lines in file order.
// Malformed lines are still yielded so positions stay stable; Decode
// rejects them.
func (a *Adapter) Records(project, session string) (iter.Seq[source.Record], error) {
	path := filepath.Join(a.projectsDir, project, session+sessionExt)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return source.EmptySeq, nil
		}
		return nil, err
	}

	return func(yield func(source.Record) bool) {
		f, err := os.Open(path)
		if err != nil {
			return
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 64*1024), maxLineBytes)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			rec := make(source.Record, len(line))
			copy(rec, line)
			if !yield(rec) {
				return
			}
		}
	}, nil
}

func (a *Adapter) Decode(rec source.Record, seq int) (model.Message, bool) {
	return normalize.ClaudeRecord(rec, seq)
}

// scanSessionFile counts non-empty lines and derives a title without a
// full decode: a summary record wins outright, otherwise the first plain
// user message.
func scanSessionFile(path string) (count int, title string) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "Untitled Session"
	}
	defer f.Close()

	var summary, firstUser string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		count++

		if summary != "" {
			continue
		}
		// Copy out of the scanner's reused buffer before extracting text.
		v := gjson.Parse(string(line))
		switch v.Get("type").Str {
		case "summary":
			summary = v.Get("summary").Str
		case "user":
			if firstUser != "" {
				break
			}
			firstUser = firstUserText(v.Get("message.content"))
		}
	}
	return count, model.DeriveTitle(summary, firstUser)
}

// firstUserText extracts plain text from a user message's content, which
// is either a string or a list of typed items.
func firstUserText(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.Str
	}
	if content.IsArray() {
		for _, item := range content.Array() {
			if item.Get("type").Str == "text" {
				if t := strings.TrimSpace(item.Get("text").Str); t != "" {
					return t
				}
			}
		}
	}
	return ""
}

// displayName decodes a dash-encoded project directory name into a short
// human-readable path suffix. Directory names encode absolute paths with
// every separator replaced by a dash, so only the trailing components are
// recoverable without guessing.
func displayName(dir string) string {
	trimmed := strings.TrimPrefix(dir, "-")
	parts := strings.Split(trimmed, "-")

	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return dir
	}
	if len(kept) > 3 {
		kept = kept[len(kept)-3:]
	}
	return strings.Join(kept, "/")
}
