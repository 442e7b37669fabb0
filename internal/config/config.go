// Package config provides configuration loading and structs for eximrag.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hyperjump/eximrag/internal/embedding"
	"github.com/hyperjump/eximrag/pkg/utils"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug" toml:"debug"`
	Log       LogConfig       `yaml:"log" toml:"log"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Embedding EmbeddingConfig `yaml:"embedding" toml:"embedding"`
	Index     IndexConfig     `yaml:"index" toml:"index"`
	Remote    RemoteConfig    `yaml:"remote" toml:"remote"`
	Watch     WatchConfig     `yaml:"watch" toml:"watch"`
	Ingest    IngestConfig    `yaml:"ingest" toml:"ingest"`
}

// LogConfig holds optional log file rotation settings. An empty File logs to stderr only.
type LogConfig struct {
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
}

// ServerConfig holds operations HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EmbeddingConfig holds embedding backend and service settings.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider" toml:"provider"`
	Model          string `yaml:"model" toml:"model"`
	APIKey         string `yaml:"api_key" toml:"api_key"`
	BaseURL        string `yaml:"base_url" toml:"base_url"`
	Dimensions     int    `yaml:"dimensions" toml:"dimensions"`
	BatchSize      int    `yaml:"batch_size" toml:"batch_size"`
	CacheSize      int    `yaml:"cache_size" toml:"cache_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds"`
	ModelPath      string `yaml:"model_path" toml:"model_path"`
	MaxTokens      int    `yaml:"max_tokens" toml:"max_tokens"`
}

// BackendConfig converts the section into the backend factory's input.
func (e EmbeddingConfig) BackendConfig() embedding.BackendConfig {
	return embedding.BackendConfig{
		Provider:       e.Provider,
		Model:          e.Model,
		APIKey:         e.APIKey,
		BaseURL:        e.BaseURL,
		Dimensions:     e.Dimensions,
		TimeoutSeconds: e.TimeoutSeconds,
		ModelPath:      e.ModelPath,
		MaxTokens:      e.MaxTokens,
	}
}

// IndexConfig holds vector index settings. Path is the snapshot base path;
// artifacts are written to <path>.index and <path>.metadata.
type IndexConfig struct {
	Type             string `yaml:"type" toml:"type"`
	Path             string `yaml:"path" toml:"path"`
	OversampleFactor int    `yaml:"oversample_factor" toml:"oversample_factor"`
}

// RemoteConfig holds object store settings for snapshot sync.
type RemoteConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	BucketURL string `yaml:"bucket_url" toml:"bucket_url"`
	Prefix    string `yaml:"prefix" toml:"prefix"`
}

// WatchConfig holds snapshot reload settings for serve.
type WatchConfig struct {
	Enabled    *bool `yaml:"enabled" toml:"enabled"`
	DebounceMS int   `yaml:"debounce_ms" toml:"debounce_ms"`
}

// EnabledOrDefault returns whether snapshot reload is on; defaults to true when unset.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
}

// IngestConfig holds chunking settings and the file extensions picked up from directories.
type IngestConfig struct {
	ChunkSize    int      `yaml:"chunk_size" toml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap" toml:"chunk_overlap"`
	Extensions   []string `yaml:"extensions" toml:"extensions"`
}

// LogRotation returns the lumberjack settings for the log section.
func (c *Config) LogRotation() utils.RotateConfig {
	return utils.RotateConfig{
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Files ending in .toml are parsed as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if isTOML(path) {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Index.Path = expandPath(cfg.Index.Path, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Log.File != "" {
		cfg.Log.File = expandPath(cfg.Log.File, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path in the format implied by its extension.
func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		var b strings.Builder
		err = toml.NewEncoder(&b).Encode(cfg)
		data = []byte(b.String())
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
