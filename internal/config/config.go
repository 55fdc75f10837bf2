// Package config loads the viewer configuration: per-source storage
// locations, cache sizing, and discovery tuning. Missing values fall back
// to defaults; an unknown source name is the only hard error.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Sources   SourcesConfig   `json:"sources"`
	Cache     CacheConfig     `json:"cache"`
	Discovery DiscoveryConfig `json:"discovery"`
	Log       LogConfig       `json:"log"`
}

// SourcesConfig holds the storage location for each supported source.
// Empty paths resolve to the vendor's per-user default at adapter
// construction time.
type SourcesConfig struct {
	Claude ClaudeSourceConfig  `json:"claude"`
	Qwen   QwenSourceConfig    `json:"qwen"`
	Cursor StateDBSourceConfig `json:"cursor"`
	Trae   StateDBSourceConfig `json:"trae"`
	Kiro   KiroSourceConfig    `json:"kiro"`
}

// ClaudeSourceConfig locates the Claude projects directory.
type ClaudeSourceConfig struct {
	ProjectsDir string `json:"projectsDir"` // supports ~ expansion
}

// QwenSourceConfig locates the Qwen tmp directory.
type QwenSourceConfig struct {
	BaseDir string `json:"baseDir"`
}

// StateDBSourceConfig locates an editor's workspaceStorage directory.
type StateDBSourceConfig struct {
	WorkspaceStorageDir string `json:"workspaceStorageDir"`
}

// KiroSourceConfig locates Kiro's split storage trees.
type KiroSourceConfig struct {
	WorkspaceStorageDir string `json:"workspaceStorageDir"`
	SessionsDir         string `json:"sessionsDir"`
}

// CacheConfig sizes the engine's result caches.
type CacheConfig struct {
	Projects      CacheTierConfig `json:"projects"`
	Sessions      CacheTierConfig `json:"sessions"`
	Conversations CacheTierConfig `json:"conversations"`
	Summaries     CacheTierConfig `json:"summaries"`
}

// CacheTierConfig sizes one cache tier.
type CacheTierConfig struct {
	MaxEntries int           `json:"maxEntries"`
	TTL        time.Duration `json:"ttl"`
}

// DiscoveryConfig tunes opaque-table key discovery.
type DiscoveryConfig struct {
	TextBonus int `json:"textBonus"`
	MaxDepth  int `json:"maxDepth"`
	ScanLimit int `json:"scanLimit"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level string `json:"level"` // debug, info, warn, error
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Projects:      CacheTierConfig{MaxEntries: 50, TTL: 5 * time.Minute},
			Sessions:      CacheTierConfig{MaxEntries: 200, TTL: 3 * time.Minute},
			Conversations: CacheTierConfig{MaxEntries: 100, TTL: 10 * time.Minute},
			Summaries:     CacheTierConfig{MaxEntries: 100, TTL: 5 * time.Minute},
		},
		Discovery: DiscoveryConfig{
			TextBonus: 1000,
			MaxDepth:  6,
			ScanLimit: 50,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	tiers := map[string]CacheTierConfig{
		"projects":      c.Cache.Projects,
		"sessions":      c.Cache.Sessions,
		"conversations": c.Cache.Conversations,
		"summaries":     c.Cache.Summaries,
	}
	for name, t := range tiers {
		if t.MaxEntries <= 0 {
			return fmt.Errorf("cache.%s.maxEntries must be positive, got %d", name, t.MaxEntries)
		}
		if t.TTL <= 0 {
			return fmt.Errorf("cache.%s.ttl must be positive, got %s", name, t.TTL)
		}
	}
	if c.Discovery.TextBonus <= 0 {
		return fmt.Errorf("discovery.textBonus must be positive, got %d", c.Discovery.TextBonus)
	}
	if c.Discovery.MaxDepth <= 0 {
		return fmt.Errorf("discovery.maxDepth must be positive, got %d", c.Discovery.MaxDepth)
	}
	if c.Discovery.ScanLimit <= 0 {
		return fmt.Errorf("discovery.scanLimit must be positive, got %d", c.Discovery.ScanLimit)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
