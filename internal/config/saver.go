package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// saveConfig is the JSON-marshaling intermediary that uses string
// durations, matching what the loader accepts.
type saveConfig struct {
	Sources   SourcesConfig   `json:"sources"`
	Cache     saveCacheConfig `json:"cache"`
	Discovery DiscoveryConfig `json:"discovery"`
	Log       LogConfig       `json:"log"`
}

type saveCacheConfig struct {
	Projects      saveCacheTier `json:"projects"`
	Sessions      saveCacheTier `json:"sessions"`
	Conversations saveCacheTier `json:"conversations"`
	Summaries     saveCacheTier `json:"summaries"`
}

type saveCacheTier struct {
	MaxEntries int    `json:"maxEntries"`
	TTL        string `json:"ttl"`
}

func toSaveConfig(cfg *Config) saveConfig {
	tier := func(t CacheTierConfig) saveCacheTier {
		return saveCacheTier{MaxEntries: t.MaxEntries, TTL: t.TTL.String()}
	}
	return saveConfig{
		Sources: cfg.Sources,
		Cache: saveCacheConfig{
			Projects:      tier(cfg.Cache.Projects),
			Sessions:      tier(cfg.Cache.Sessions),
			Conversations: tier(cfg.Cache.Conversations),
			Summaries:     tier(cfg.Cache.Summaries),
		},
		Discovery: cfg.Discovery,
		Log:       cfg.Log,
	}
}

// Save writes the config to ~/.config/convoview/config.json.
func Save(cfg *Config) error {
	return SaveTo(cfg, ConfigPath())
}

// SaveTo writes the config to a specific path, creating parent
// directories as needed.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(toSaveConfig(cfg), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
