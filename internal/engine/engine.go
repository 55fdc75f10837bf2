// Package engine is the read-side facade over all source adapters:
// project and session listings, paginated conversations with filtering,
// and summary lookup, each behind a bounded TTL cache.
package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/hollis/convoview/internal/cache"
	"github.com/hollis/convoview/internal/config"
	"github.com/hollis/convoview/internal/discover"
	"github.com/hollis/convoview/internal/model"
	"github.com/hollis/convoview/internal/source"
	"github.com/hollis/convoview/internal/source/claudecode"
	"github.com/hollis/convoview/internal/source/kiro"
	"github.com/hollis/convoview/internal/source/qwen"
	"github.com/hollis/convoview/internal/source/statedb"
)

const defaultPerPage = 50

// Query selects and pages one session's messages. Zero values mean
// first page, default size, no filtering.
type Query struct {
	Page    int
	PerPage int
	Search  string     // case-insensitive substring over content
	Role    string     // case-insensitive role match (user, assistant)
	Kind    model.Kind // restrict to one message kind
}

// Conversation is one page of a session's normalized messages.
type Conversation struct {
	Messages   []model.Message `json:"messages"`
	Total      int             `json:"total"` // filtered total, not page size
	Page       int             `json:"page"`
	PerPage    int             `json:"perPage"`
	TotalPages int             `json:"totalPages"`
}

// Stats reports per-source listing counts and cache occupancy.
type Stats struct {
	Sources map[string]SourceStats `json:"sources"`
	Caches  map[string]int         `json:"caches"`
}

// SourceStats counts one source's visible data.
type SourceStats struct {
	Projects int `json:"projects"`
	Sessions int `json:"sessions"`
}

// Engine answers all read queries, caching results per tier.
type Engine struct {
	adapters map[source.Kind]source.Adapter
	log      *slog.Logger

	projects  *cache.Cache[[]model.Project]
	sessions  *cache.Cache[[]model.Session]
	convos    *cache.Cache[Conversation]
	summaries *cache.Cache[string]
}

// New builds an engine with one adapter per supported source, wired from
// the configuration.
func New(cfg *config.Config, log *slog.Logger) *Engine {
	w := discover.Weights{
		TextBonus: cfg.Discovery.TextBonus,
		MaxDepth:  cfg.Discovery.MaxDepth,
		ScanLimit: cfg.Discovery.ScanLimit,
	}
	return NewWithAdapters(cfg, log,
		claudecode.New(cfg.Sources.Claude.ProjectsDir),
		qwen.New(cfg.Sources.Qwen.BaseDir),
		statedb.New(source.Cursor, cfg.Sources.Cursor.WorkspaceStorageDir, w),
		statedb.New(source.Trae, cfg.Sources.Trae.WorkspaceStorageDir, w),
		kiro.New(cfg.Sources.Kiro.WorkspaceStorageDir, cfg.Sources.Kiro.SessionsDir),
	)
}

// NewWithAdapters builds an engine over an explicit adapter set.
func NewWithAdapters(cfg *config.Config, log *slog.Logger, adapters ...source.Adapter) *Engine {
	if log == nil {
		log = slog.Default()
	}
	byKind := make(map[source.Kind]source.Adapter, len(adapters))
	for _, a := range adapters {
		byKind[a.Kind()] = a
	}
	return &Engine{
		adapters:  byKind,
		log:       log,
		projects:  cache.NewTTL[[]model.Project](cfg.Cache.Projects.MaxEntries, cfg.Cache.Projects.TTL),
		sessions:  cache.NewTTL[[]model.Session](cfg.Cache.Sessions.MaxEntries, cfg.Cache.Sessions.TTL),
		convos:    cache.NewTTL[Conversation](cfg.Cache.Conversations.MaxEntries, cfg.Cache.Conversations.TTL),
		summaries: cache.NewTTL[string](cfg.Cache.Summaries.MaxEntries, cfg.Cache.Summaries.TTL),
	}
}

// adapter resolves a source identifier. An unknown identifier is the
// engine's only configuration error; every other failure degrades to an
// empty result.
func (e *Engine) adapter(src string) (source.Adapter, error) {
	kind, err := source.ParseKind(src)
	if err != nil {
		return nil, err
	}
	a, ok := e.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("source %q is not configured", src)
	}
	return a, nil
}

// ListProjects returns the source's projects, newest first.
func (e *Engine) ListProjects(src string) ([]model.Project, error) {
	a, err := e.adapter(src)
	if err != nil {
		return nil, err
	}

	key := cacheKey("projects", src)
	if v, ok := e.projects.Get(key); ok {
		return v, nil
	}

	list, err := a.Projects()
	if err != nil {
		e.log.Warn("project listing failed", "source", src, "error", err)
		return nil, nil
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ModifiedAt.After(list[j].ModifiedAt)
	})
	e.projects.Set(key, list)
	return list, nil
}

// ListSessions returns the project's sessions, newest first. An unknown
// project is an empty result.
func (e *Engine) ListSessions(src, project string) ([]model.Session, error) {
	a, err := e.adapter(src)
	if err != nil {
		return nil, err
	}

	key := cacheKey("sessions", src, project)
	if v, ok := e.sessions.Get(key); ok {
		return v, nil
	}

	list, err := a.Sessions(project)
	if err != nil {
		e.log.Warn("session listing failed", "source", src, "project", project, "error", err)
		return nil, nil
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ModifiedAt.After(list[j].ModifiedAt)
	})
	e.sessions.Set(key, list)
	return list, nil
}

// GetConversation decodes, filters, and pages one session. Filtering
// runs before pagination, so Total and TotalPages describe the filtered
// set. Pages are 1-based; out-of-range pages return empty message lists
// with intact counts.
func (e *Engine) GetConversation(src, project, session string, q Query) (Conversation, error) {
	a, err := e.adapter(src)
	if err != nil {
		return Conversation{}, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}

	key := cacheKey("conversation", src, project, session,
		fmt.Sprint(page), fmt.Sprint(perPage), q.Search, q.Role, string(q.Kind))
	if v, ok := e.convos.Get(key); ok {
		return v, nil
	}

	msgs, err := e.decodeAll(a, project, session)
	if err != nil {
		e.log.Warn("conversation read failed", "source", src, "project", project, "session", session, "error", err)
		msgs = nil
	}

	filtered := msgs[:0:0]
	for _, m := range msgs {
		if q.Kind != "" && m.Kind != q.Kind {
			continue
		}
		if q.Role != "" && !strings.EqualFold(string(m.Role), q.Role) {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(m.Content), strings.ToLower(q.Search)) {
			continue
		}
		filtered = append(filtered, m)
	}

	total := len(filtered)
	totalPages := (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	conv := Conversation{
		Messages:   filtered[start:end],
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}
	e.convos.Set(key, conv)
	return conv, nil
}

// SessionSummary returns the session's first summary message content, or
// "" when the session has none.
func (e *Engine) SessionSummary(src, project, session string) (string, error) {
	a, err := e.adapter(src)
	if err != nil {
		return "", err
	}

	key := cacheKey("summary", src, project, session)
	if v, ok := e.summaries.Get(key); ok {
		return v, nil
	}

	recs, err := a.Records(project, session)
	if err != nil {
		e.log.Warn("summary read failed", "source", src, "project", project, "session", session, "error", err)
		return "", nil
	}

	var summary string
	seq := 0
	for rec := range recs {
		seq++
		msg, ok := a.Decode(rec, seq)
		if !ok {
			continue
		}
		if msg.Kind == model.KindSummary {
			summary = msg.Content
			break
		}
	}
	e.summaries.Set(key, summary)
	return summary, nil
}

// Stats walks every configured source and reports listing counts plus
// cache occupancy. Listing errors count as zero.
func (e *Engine) Stats() Stats {
	s := Stats{
		Sources: make(map[string]SourceStats, len(e.adapters)),
		Caches: map[string]int{
			"projects":      e.projects.Len(),
			"sessions":      e.sessions.Len(),
			"conversations": e.convos.Len(),
			"summaries":     e.summaries.Len(),
		},
	}
	for kind := range e.adapters {
		src := string(kind)
		var st SourceStats
		projects, _ := e.ListProjects(src)
		st.Projects = len(projects)
		for _, p := range projects {
			sessions, _ := e.ListSessions(src, p.Name)
			st.Sessions += len(sessions)
		}
		s.Sources[src] = st
	}
	return s
}

// Invalidate drops all cached results.
func (e *Engine) Invalidate() {
	e.projects.Clear()
	e.sessions.Clear()
	e.convos.Clear()
	e.summaries.Clear()
}

func (e *Engine) decodeAll(a source.Adapter, project, session string) ([]model.Message, error) {
	recs, err := a.Records(project, session)
	if err != nil {
		return nil, err
	}
	var msgs []model.Message
	seq := 0
	for rec := range recs {
		seq++
		if msg, ok := a.Decode(rec, seq); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

// cacheKey joins parts under a tier prefix and hashes them, keeping the
// cache's memory footprint independent of identifier length.
func cacheKey(tier string, parts ...string) string {
	h := xxhash.New()
	h.WriteString(tier)
	for _, p := range parts {
		h.Write([]byte{0})
		h.WriteString(p)
	}
	return fmt.Sprintf("%s:%016x", tier, h.Sum64())
}
