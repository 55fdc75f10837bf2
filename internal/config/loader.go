package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	configDir  = ".config/convoview"
	configFile = "config.json"
)

// Environment overrides for storage locations, applied after the file is
// merged so deployments can relocate vendor data without editing config.
const (
	envCursorDir = "CURSOR_WORKSPACE_STORAGE_PATH"
	envTraeDir   = "TRAE_WORKSPACE_STORAGE_PATH"
	envKiroDir   = "KIRO_WORKSPACE_STORAGE_PATH"
)

// rawConfig is the JSON-unmarshaling intermediary; durations arrive as
// strings and absent values stay distinguishable from zeros.
type rawConfig struct {
	Sources   SourcesConfig  `json:"sources"`
	Cache     rawCacheConfig `json:"cache"`
	Discovery rawDiscovery   `json:"discovery"`
	Log       LogConfig      `json:"log"`
}

type rawCacheConfig struct {
	Projects      rawCacheTier `json:"projects"`
	Sessions      rawCacheTier `json:"sessions"`
	Conversations rawCacheTier `json:"conversations"`
	Summaries     rawCacheTier `json:"summaries"`
}

type rawCacheTier struct {
	MaxEntries *int   `json:"maxEntries"`
	TTL        string `json:"ttl"`
}

type rawDiscovery struct {
	TextBonus *int `json:"textBonus"`
	MaxDepth  *int `json:"maxDepth"`
	ScanLimit *int `json:"scanLimit"`
}

// Load loads configuration from the default location.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration from a specific path. If path is empty,
// ~/.config/convoview/config.json is used; a missing file yields the
// defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = ConfigPath()
		if path == "" {
			applyEnv(cfg)
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	mergeConfig(cfg, &raw)
	applyEnv(cfg)

	cfg.Sources.Claude.ProjectsDir = ExpandPath(cfg.Sources.Claude.ProjectsDir)
	cfg.Sources.Qwen.BaseDir = ExpandPath(cfg.Sources.Qwen.BaseDir)
	cfg.Sources.Cursor.WorkspaceStorageDir = ExpandPath(cfg.Sources.Cursor.WorkspaceStorageDir)
	cfg.Sources.Trae.WorkspaceStorageDir = ExpandPath(cfg.Sources.Trae.WorkspaceStorageDir)
	cfg.Sources.Kiro.WorkspaceStorageDir = ExpandPath(cfg.Sources.Kiro.WorkspaceStorageDir)
	cfg.Sources.Kiro.SessionsDir = ExpandPath(cfg.Sources.Kiro.SessionsDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeConfig merges raw config values into the defaults.
func mergeConfig(cfg *Config, raw *rawConfig) {
	cfg.Sources = raw.Sources

	mergeTier(&cfg.Cache.Projects, raw.Cache.Projects)
	mergeTier(&cfg.Cache.Sessions, raw.Cache.Sessions)
	mergeTier(&cfg.Cache.Conversations, raw.Cache.Conversations)
	mergeTier(&cfg.Cache.Summaries, raw.Cache.Summaries)

	if raw.Discovery.TextBonus != nil {
		cfg.Discovery.TextBonus = *raw.Discovery.TextBonus
	}
	if raw.Discovery.MaxDepth != nil {
		cfg.Discovery.MaxDepth = *raw.Discovery.MaxDepth
	}
	if raw.Discovery.ScanLimit != nil {
		cfg.Discovery.ScanLimit = *raw.Discovery.ScanLimit
	}

	if raw.Log.Level != "" {
		cfg.Log.Level = raw.Log.Level
	}
}

func mergeTier(dst *CacheTierConfig, raw rawCacheTier) {
	if raw.MaxEntries != nil {
		dst.MaxEntries = *raw.MaxEntries
	}
	if raw.TTL != "" {
		if d, err := time.ParseDuration(raw.TTL); err == nil {
			dst.TTL = d
		}
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(envCursorDir); v != "" {
		cfg.Sources.Cursor.WorkspaceStorageDir = v
	}
	if v := os.Getenv(envTraeDir); v != "" {
		cfg.Sources.Trae.WorkspaceStorageDir = v
	}
	if v := os.Getenv(envKiroDir); v != "" {
		cfg.Sources.Kiro.WorkspaceStorageDir = v
	}
}

// ExpandPath expands ~ to the home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configDir, configFile)
}
