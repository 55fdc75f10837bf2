package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hollis/convoview/internal/config"
	"github.com/hollis/convoview/internal/model"
	"github.com/hollis/convoview/internal/normalize"
	"github.com/hollis/convoview/internal/source"
)

// fakeAdapter serves canned claude-format records and counts reads so
// tests can observe caching.
type fakeAdapter struct {
	kind     source.Kind
	projects []model.Project
	sessions map[string][]model.Session
	records  map[string][]string // "project/session" -> raw lines
	reads    int
}

func (f *fakeAdapter) Kind() source.Kind                  { return f.kind }
func (f *fakeAdapter) Projects() ([]model.Project, error) { f.reads++; return f.projects, nil }
func (f *fakeAdapter) Sessions(project string) ([]model.Session, error) {
	f.reads++
	return f.sessions[project], nil
}

func (f *fakeAdapter) Records(project, session string) (iter.Seq[source.Record], error) {
	f.reads++
	lines := f.records[project+"/"+session]
	return func(yield func(source.Record) bool) {
		for _, l := range lines {
			if !yield(source.Record(l)) {
				return
			}
		}
	}, nil
}

func (f *fakeAdapter) Decode(rec source.Record, seq int) (model.Message, bool) {
	return normalize.ClaudeRecord(rec, seq)
}

func userLine(text string) string {
	b, _ := json.Marshal(map[string]any{
		"type": "user", "message": map[string]any{"content": text},
	})
	return string(b)
}

func newTestEngine(f *fakeAdapter) *Engine {
	return NewWithAdapters(config.Default(), slog.New(slog.NewTextHandler(os.Stderr, nil)), f)
}

func TestUnknownSourceIsHardError(t *testing.T) {
	e := newTestEngine(&fakeAdapter{kind: source.Claude})
	if _, err := e.ListProjects("copilot"); err == nil {
		t.Error("unknown source should error")
	}
	if _, err := e.GetConversation("copilot", "p", "s", Query{}); err == nil {
		t.Error("unknown source should error")
	}
}

func TestPaginationBoundaries(t *testing.T) {
	lines := make([]string, 125)
	for i := range lines {
		lines[i] = userLine(fmt.Sprintf("message %d", i+1))
	}
	f := &fakeAdapter{
		kind:    source.Claude,
		records: map[string][]string{"p/s": lines},
	}
	e := newTestEngine(f)

	conv, err := e.GetConversation("claude", "p", "s", Query{Page: 3, PerPage: 50})
	if err != nil {
		t.Fatal(err)
	}
	if conv.Total != 125 || conv.TotalPages != 3 {
		t.Errorf("total=%d totalPages=%d, want 125/3", conv.Total, conv.TotalPages)
	}
	if len(conv.Messages) != 25 {
		t.Fatalf("page 3 should hold 25 messages, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Seq != 101 || conv.Messages[24].Seq != 125 {
		t.Errorf("page 3 spans seq %d..%d, want 101..125", conv.Messages[0].Seq, conv.Messages[24].Seq)
	}

	// Past the last page: counts intact, no messages.
	conv, err = e.GetConversation("claude", "p", "s", Query{Page: 9, PerPage: 50})
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 0 || conv.Total != 125 {
		t.Errorf("out-of-range page: %d messages, total %d", len(conv.Messages), conv.Total)
	}
}

func TestFilterRunsBeforePagination(t *testing.T) {
	var lines []string
	for i := 1; i <= 30; i++ {
		text := fmt.Sprintf("plain %d", i)
		if i%3 == 0 {
			text = fmt.Sprintf("NEEDLE hit %d", i)
		}
		lines = append(lines, userLine(text))
	}
	f := &fakeAdapter{kind: source.Claude, records: map[string][]string{"p/s": lines}}
	e := newTestEngine(f)

	conv, err := e.GetConversation("claude", "p", "s", Query{Search: "needle", PerPage: 5})
	if err != nil {
		t.Fatal(err)
	}
	if conv.Total != 10 || conv.TotalPages != 2 {
		t.Errorf("total=%d totalPages=%d, want 10/2", conv.Total, conv.TotalPages)
	}
	if len(conv.Messages) != 5 {
		t.Fatalf("got %d messages", len(conv.Messages))
	}
	// Original positions survive filtering.
	if conv.Messages[0].Seq != 3 || conv.Messages[4].Seq != 15 {
		t.Errorf("seq %d..%d, want 3..15", conv.Messages[0].Seq, conv.Messages[4].Seq)
	}
}

func TestKindFilter(t *testing.T) {
	lines := []string{
		`{"type":"summary","summary":"the digest"}`,
		userLine("hello"),
		`{"type":"system","subtype":"init"}`,
	}
	f := &fakeAdapter{kind: source.Claude, records: map[string][]string{"p/s": lines}}
	e := newTestEngine(f)

	conv, err := e.GetConversation("claude", "p", "s", Query{Kind: model.KindSummary})
	if err != nil {
		t.Fatal(err)
	}
	if conv.Total != 1 || conv.Messages[0].Content != "the digest" {
		t.Errorf("got %+v", conv)
	}
}

func TestRoleFilterIsCaseInsensitive(t *testing.T) {
	lines := []string{
		userLine("question"),
		`{"type":"assistant","message":{"content":"answer"}}`,
		userLine("followup"),
	}
	f := &fakeAdapter{kind: source.Claude, records: map[string][]string{"p/s": lines}}
	e := newTestEngine(f)

	conv, err := e.GetConversation("claude", "p", "s", Query{Role: "USER"})
	if err != nil {
		t.Fatal(err)
	}
	if conv.Total != 2 {
		t.Fatalf("total = %d, want 2", conv.Total)
	}
	for _, m := range conv.Messages {
		if m.Role != model.RoleUser {
			t.Errorf("got role %q", m.Role)
		}
	}
}

func TestListingsCachedAndSorted(t *testing.T) {
	now := time.Now()
	f := &fakeAdapter{
		kind: source.Claude,
		projects: []model.Project{
			{Name: "old", ModifiedAt: now.Add(-time.Hour)},
			{Name: "new", ModifiedAt: now},
		},
	}
	e := newTestEngine(f)

	for i := 0; i < 3; i++ {
		projects, err := e.ListProjects("claude")
		if err != nil {
			t.Fatal(err)
		}
		if len(projects) != 2 || projects[0].Name != "new" {
			t.Fatalf("want newest first, got %+v", projects)
		}
	}
	if f.reads != 1 {
		t.Errorf("adapter read %d times, want 1 (cached)", f.reads)
	}

	e.Invalidate()
	if _, err := e.ListProjects("claude"); err != nil {
		t.Fatal(err)
	}
	if f.reads != 2 {
		t.Errorf("invalidate should force a re-read, got %d reads", f.reads)
	}
}

func TestSessionSummary(t *testing.T) {
	f := &fakeAdapter{
		kind: source.Claude,
		records: map[string][]string{
			"p/with":    {userLine("hi"), `{"type":"summary","summary":"wrap-up"}`},
			"p/without": {userLine("hi")},
		},
	}
	e := newTestEngine(f)

	got, err := e.SessionSummary("claude", "p", "with")
	if err != nil || got != "wrap-up" {
		t.Errorf("got %q, err=%v", got, err)
	}
	got, err = e.SessionSummary("claude", "p", "without")
	if err != nil || got != "" {
		t.Errorf("summary-less session: got %q, err=%v", got, err)
	}
}

func TestStats(t *testing.T) {
	f := &fakeAdapter{
		kind:     source.Claude,
		projects: []model.Project{{Name: "p"}},
		sessions: map[string][]model.Session{"p": {{ID: "a"}, {ID: "b"}}},
	}
	e := newTestEngine(f)

	s := e.Stats()
	if got := s.Sources["claude"]; got.Projects != 1 || got.Sessions != 2 {
		t.Errorf("got %+v", got)
	}
	if s.Caches["projects"] != 1 || s.Caches["sessions"] != 1 {
		t.Errorf("listings should be cached after Stats, got %+v", s.Caches)
	}
}

func TestWatchInvalidates(t *testing.T) {
	dir := t.TempDir()
	f := &fakeAdapter{kind: source.Claude, projects: []model.Project{{Name: "p"}}}
	e := newTestEngine(f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := e.Watch(ctx, dir); err != nil {
		t.Fatal(err)
	}

	if _, err := e.ListProjects("claude"); err != nil {
		t.Fatal(err)
	}
	before := f.reads

	if err := os.WriteFile(filepath.Join(dir, "new.jsonl"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	// The debounced invalidation lands asynchronously.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := e.ListProjects("claude"); err != nil {
			t.Fatal(err)
		}
		if f.reads > before {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("watch event did not invalidate the cache")
}

func TestWatchNoDirsErrors(t *testing.T) {
	e := newTestEngine(&fakeAdapter{kind: source.Claude})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := e.Watch(ctx, filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("watching nothing should error")
	}
}
