package statedb

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hollis/convoview/internal/discover"
	"github.com/hollis/convoview/internal/model"
	"github.com/hollis/convoview/internal/source"
)

// newStateDB creates a workspace directory with a populated state.vscdb.
func newStateDB(t *testing.T, baseDir, workspace string, items map[string]string) {
	t.Helper()
	dir := filepath.Join(baseDir, workspace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, dbFileName))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE ItemTable (key TEXT PRIMARY KEY, value BLOB)`); err != nil {
		t.Fatal(err)
	}
	for k, v := range items {
		if _, err := db.Exec(`INSERT INTO ItemTable (key, value) VALUES (?, ?)`, k, v); err != nil {
			t.Fatal(err)
		}
	}
}

func writeManifest(t *testing.T, baseDir, workspace, content string) {
	t.Helper()
	path := filepath.Join(baseDir, workspace, workspaceManifest)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPreferredKeyWins(t *testing.T) {
	base := t.TempDir()
	newStateDB(t, base, "ws1", map[string]string{
		"aiService.prompts": `[{"text":"how do I test this?"},{"text":"like so"}]`,
		"other.chatHistory": `[{"text":"a"},{"text":"b"},{"text":"c"}]`,
	})

	a := New(source.Cursor, base, discover.DefaultWeights())
	sessions, err := a.Sessions("ws1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if sessions[0].ID != "aiService.prompts" {
		t.Errorf("known vendor key should win over discovery, got %q", sessions[0].ID)
	}
	if sessions[0].MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", sessions[0].MessageCount)
	}
}

func TestDiscoveryFallback(t *testing.T) {
	base := t.TempDir()
	newStateDB(t, base, "ws1", map[string]string{
		"vendor.custom.chatHistory": `[{"text":"question"},{"text":"answer"}]`,
		"workbench.view.state":      `{"layout":"wide"}`,
	})

	a := New(source.Trae, base, discover.DefaultWeights())
	sessions, err := a.Sessions("ws1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].ID != "vendor.custom.chatHistory" {
		t.Errorf("got %+v", sessions)
	}
}

func TestRecordsAndDecode(t *testing.T) {
	base := t.TempDir()
	newStateDB(t, base, "ws1", map[string]string{
		"aiService.prompts": `[{"text":"first question","isUser":true},{"outputText":"the answer"}]`,
	})

	a := New(source.Cursor, base, discover.DefaultWeights())
	seq, err := a.Records("ws1", "aiService.prompts")
	if err != nil {
		t.Fatal(err)
	}

	var msgs []model.Message
	n := 0
	for rec := range seq {
		n++
		if m, ok := a.Decode(rec, n); ok {
			msgs = append(msgs, m)
		}
	}
	if len(msgs) != 2 {
		t.Fatalf("decoded %d, want 2", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[0].Content != "first question" {
		t.Errorf("got %+v", msgs[0])
	}
	if msgs[1].Role != model.RoleAssistant {
		t.Errorf("outputText record should infer assistant, got %+v", msgs[1])
	}
}

func TestEmptyWorkspaceListsNoSessions(t *testing.T) {
	base := t.TempDir()
	newStateDB(t, base, "ws1", map[string]string{
		"editor.fontSize": `14`,
	})

	a := New(source.Cursor, base, discover.DefaultWeights())
	sessions, err := a.Sessions("ws1")
	if err != nil {
		t.Fatal(err)
	}
	if sessions != nil {
		t.Errorf("workspace without conversation data should list no sessions, got %+v", sessions)
	}

	projects, err := a.Projects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].SessionCount != 0 {
		t.Errorf("got %+v", projects)
	}
}

func TestDisplayNameFromManifest(t *testing.T) {
	base := t.TempDir()
	newStateDB(t, base, "abc123", map[string]string{})
	writeManifest(t, base, "abc123", `{"folder":"file:///Users/pat/code/webshop"}`)

	a := New(source.Cursor, base, discover.DefaultWeights())
	projects, err := a.Projects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].DisplayName != "pat/code/webshop" {
		t.Errorf("got %+v", projects)
	}
}

func TestDisplayNameFallsBackToDirName(t *testing.T) {
	base := t.TempDir()
	newStateDB(t, base, "abc123", map[string]string{})

	a := New(source.Cursor, base, discover.DefaultWeights())
	projects, err := a.Projects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].DisplayName != "abc123" {
		t.Errorf("got %+v", projects)
	}
}

func TestMissingBaseDirIsEmpty(t *testing.T) {
	a := New(source.Cursor, filepath.Join(t.TempDir(), "nope"), discover.DefaultWeights())
	projects, err := a.Projects()
	if err != nil || projects != nil {
		t.Errorf("missing base dir: projects=%v err=%v", projects, err)
	}
}

func TestFolderURIPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"file:///Users/pat/code/app", "/Users/pat/code/app"},
		{"file:///home/dev/my%20app", "/home/dev/my app"},
		{"/plain/path", "/plain/path"},
		{"vscode-remote://ssh/home/x", ""},
	}
	for _, tt := range tests {
		if got := FolderURIPath(tt.in); got != tt.want {
			t.Errorf("FolderURIPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
