// Package statedb reads editor workspace-storage conversations stored in
// an opaque key-value table (the ItemTable of a state.vscdb SQLite file).
// It serves both Cursor and Trae, which share the storage layout but not
// the key names; unknown key names are located by heuristic discovery.
package statedb

import (
	"fmt"
	"iter"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hollis/convoview/internal/cache"
	"github.com/hollis/convoview/internal/discover"
	"github.com/hollis/convoview/internal/model"
	"github.com/hollis/convoview/internal/normalize"
	"github.com/hollis/convoview/internal/source"
)

const (
	dbFileName        = "state.vscdb"
	workspaceManifest = "workspace.json"
	keyCacheEntries   = 256
)

// preferredKeys lists the key each vendor is known to use; discovery runs
// only when none of these holds scoring data.
var preferredKeys = map[source.Kind][]string{
	source.Cursor: {"aiService.prompts", "aiService.generations"},
	source.Trae:   {"icube-ai-agent-storage-input-history"},
}

// discovered is the cached outcome of key discovery for one database
// generation. Negative results are cached too, so empty workspaces are
// not re-scanned on every listing.
type discovered struct {
	key string
	ok  bool
}

// Adapter implements source.Adapter over a workspaceStorage directory of
// per-workspace state databases. One workspace maps to one project with a
// single session keyed by the discovered conversation key.
type Adapter struct {
	kind    source.Kind
	baseDir string
	weights discover.Weights
	keys    *cache.Cache[discovered] // dbPath+mtime -> discovery outcome
}

// New creates an adapter for kind (Cursor or Trae) rooted at baseDir.
// An empty baseDir falls back to the platform workspaceStorage location.
func New(kind source.Kind, baseDir string, weights discover.Weights) *Adapter {
	if baseDir == "" {
		baseDir = defaultBaseDir(kind)
	}
	return &Adapter{
		kind:    kind,
		baseDir: baseDir,
		weights: weights,
		keys:    cache.New[discovered](keyCacheEntries),
	}
}

func defaultBaseDir(kind source.Kind) string {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	product := "Cursor"
	if kind == source.Trae {
		product = "Trae"
	}
	return filepath.Join(cfg, product, "User", "workspaceStorage")
}

func (a *Adapter) Kind() source.Kind { return a.kind }

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
		dbPath := filepath.Join(a.baseDir, e.Name(), dbFileName)
		info, err := os.Stat(dbPath)
		if err != nil {
			continue
		}

		count := 0
		if _, ok := a.conversationKey(dbPath); ok {
			count = 1
		}
		projects = append(projects, model.Project{
			Name:         e.Name(),
			DisplayName:  a.displayName(e.Name()),
			SessionCount: count,
			ModifiedAt:   info.ModTime(),
		})
	}
	return projects, nil
}

// Sessions returns the workspace's single session, identified by the
// discovered conversation key. Workspaces without conversation data list
// no sessions.
func (a *Adapter) Sessions(project string) ([]model.Session, error) {
	dbPath := filepath.Join(a.baseDir, project, dbFileName)
	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	key, ok := a.conversationKey(dbPath)
	if !ok {
		return nil, nil
	}

	recs, err := a.readRecords(dbPath, key)
	if err != nil {
		return nil, nil
	}

	var count int
	var summary, firstUser string
	for i, rec := range recs {
		msg, ok := normalize.TableRecord(rec, i+1)
		if !ok {
			continue
		}
		count++
		switch {
		case msg.Kind == model.KindSummary && summary == "":
			summary = msg.Content
		case msg.Role == model.RoleUser && firstUser == "":
			firstUser = msg.Content
		}
	}

	return []model.Session{{
		ID:           key,
		Size:         info.Size(),
		ModifiedAt:   info.ModTime(),
		MessageCount: count,
		Title:        model.DeriveTitle(summary, firstUser),
	}}, nil
}

// Records streams the record list stored under the session's key in table
// order. The session ID is the conversation key itself.
func (a *Adapter) Records(project, session string) (iter.Seq[source.Record], error) {
	dbPath := filepath.Join(a.baseDir, project, dbFileName)
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return source.EmptySeq, nil
		}
		return nil, err
	}

	recs, err := a.readRecords(dbPath, session)
	if err != nil {
		return nil, err
	}
	return func(yield func(source.Record) bool) {
		for _, r := range recs {
			if !yield(r) {
				return
			}
		}
	}, nil
}

func (a *Adapter) Decode(rec source.Record, seq int) (model.Message, bool) {
	return normalize.TableRecord(rec, seq)
}

func (a *Adapter) readRecords(dbPath, key string) ([]source.Record, error) {
	db, err := openStateDB(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	raw, ok, err := (&sqlTable{db: db}).Value(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return discover.Records(raw, a.weights), nil
}

// conversationKey locates the table key holding conversation records,
// trying the vendor's known keys before falling back to discovery. The
// outcome is cached per database generation (path plus mtime), so a
// workspace is scanned at most once until its state file changes.
func (a *Adapter) conversationKey(dbPath string) (string, bool) {
	info, err := os.Stat(dbPath)
	if err != nil {
		return "", false
	}
	cacheKey := fmt.Sprintf("%s|%d", dbPath, info.ModTime().UnixNano())
	if d, ok := a.keys.Get(cacheKey); ok {
		return d.key, d.ok
	}

	key, ok := a.findKey(dbPath)
	a.keys.Set(cacheKey, discovered{key: key, ok: ok})
	return key, ok
}

func (a *Adapter) findKey(dbPath string) (string, bool) {
	db, err := openStateDB(dbPath)
	if err != nil {
		return "", false
	}
	defer db.Close()
	table := &sqlTable{db: db}

	for _, k := range preferredKeys[a.kind] {
		raw, ok, err := table.Value(k)
		if err != nil || !ok {
			continue
		}
		if discover.Score(raw, a.weights) > 0 {
			return k, true
		}
	}

	if key, ok := discover.Find(table, a.weights); ok {
		return key.Name, true
	}
	return "", false
}

// displayName resolves a readable project name from the workspace
// manifest's folder URI. The hash-named directory is the fallback.
func (a *Adapter) displayName(project string) string {
	data, err := os.ReadFile(filepath.Join(a.baseDir, project, workspaceManifest))
	if err != nil {
		return project
	}
	if name := manifestFolderName(string(data)); name != "" {
		return name
	}
	return project
}

// manifestFolderName extracts a folder path from the several manifest
// shapes in the wild: a folder/workspace URI, a plain path field, or a
// configuration blob with a folders list.
func manifestFolderName(manifest string) string {
	v := gjson.Parse(manifest)
	candidates := []gjson.Result{
		v.Get("folder"),
		v.Get("workspace"),
		v.Get("workspacePath"),
		v.Get("path"),
		v.Get("folders.0.path"),
		v.Get("folders.0.uri"),
	}
	if cfg := v.Get("configuration"); cfg.Type == gjson.String && gjson.Valid(cfg.Str) {
		candidates = append(candidates, gjson.Parse(cfg.Str).Get("folders.0.path"))
	}

	for _, c := range candidates {
		if c.Type != gjson.String || c.Str == "" {
			continue
		}
		if p := FolderURIPath(c.Str); p != "" {
			return shortPath(p)
		}
	}
	return ""
}

// FolderURIPath converts a file:// URI or plain path into a filesystem
// path. Unsupported schemes (vscode-remote and friends) yield "".
func FolderURIPath(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme != "file" {
		return ""
	}
	if p, err := url.PathUnescape(u.Path); err == nil {
		return p
	}
	return u.Path
}

// shortPath keeps the last three path components.
func shortPath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	var kept []string
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	if len(kept) > 3 {
		kept = kept[len(kept)-3:]
	}
	return strings.Join(kept, "/")
}
