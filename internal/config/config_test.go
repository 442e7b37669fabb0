package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/eximrag/internal/embedding"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  host: "127.0.0.1"
  port: 9000
embedding:
  provider: openai
  model: text-embedding-3-small
  dimensions: 1536
index:
  path: "/tmp/eximrag/snap"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("unexpected server addr: %s", cfg.Server.Addr())
	}
	if cfg.Embedding.Provider != "openai" || cfg.Embedding.Dimensions != 1536 {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.Embedding.BatchSize != embedding.DefaultBatchSize {
		t.Errorf("batch_size should default, got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Index.Path != "/tmp/eximrag/snap" {
		t.Errorf("index path = %s", cfg.Index.Path)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
debug = true

[embedding]
provider = "ark"
dimensions = 1024
cache_size = 50

[index]
type = "flat"
path = "./data/exim"
oversample_factor = 4

[remote]
enabled = true
bucket_url = "s3://exim-snapshots?region=ap-south-1"
prefix = "prod/"

[watch]
enabled = false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
	if cfg.Embedding.Provider != "ark" || cfg.Embedding.Dimensions != 1024 || cfg.Embedding.CacheSize != 50 {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.Index.OversampleFactor != 4 {
		t.Errorf("oversample_factor = %d", cfg.Index.OversampleFactor)
	}
	if !cfg.Remote.Enabled || cfg.Remote.Prefix != "prod/" {
		t.Errorf("unexpected remote config: %+v", cfg.Remote)
	}
	if cfg.Watch.EnabledOrDefault() {
		t.Error("watch should be disabled")
	}
	want := filepath.Join(filepath.Dir(path), "data", "exim")
	if cfg.Index.Path != want {
		t.Errorf("index path = %s, want %s", cfg.Index.Path, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "bad.yaml", "server: [")); err == nil {
		t.Error("expected error for invalid yaml")
	}
	if _, err := Load(writeConfig(t, "bad.toml", "[index\n")); err == nil {
		t.Error("expected error for invalid toml")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
index:
  path: "./data/index/exim"
log:
  file: "./logs/eximrag.log"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(path)
	if want := filepath.Join(dir, "data", "index", "exim"); cfg.Index.Path != want {
		t.Errorf("index path = %s, want %s", cfg.Index.Path, want)
	}
	if want := filepath.Join(dir, "logs", "eximrag.log"); cfg.Log.File != want {
		t.Errorf("log file = %s, want %s", cfg.Log.File, want)
	}
	if cfg.Log.MaxSizeMB != 100 || cfg.Log.MaxBackups != 3 {
		t.Errorf("log rotation defaults not applied: %+v", cfg.Log)
	}
	if rc := cfg.LogRotation(); rc.File != cfg.Log.File || rc.MaxAgeDays != 28 {
		t.Errorf("LogRotation() = %+v", rc)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: %+v", cfg.Server)
	}
	if cfg.Embedding.Provider != embedding.ProviderMock {
		t.Errorf("default provider: got %s", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimensions != 768 || cfg.Embedding.BatchSize != 32 || cfg.Embedding.CacheSize != 1000 {
		t.Errorf("default embedding: %+v", cfg.Embedding)
	}
	if cfg.Index.Type != "flat" || cfg.Index.OversampleFactor != 10 || cfg.Index.Path == "" {
		t.Errorf("default index: %+v", cfg.Index)
	}
	if cfg.Ingest.ChunkSize != 256 || cfg.Ingest.ChunkOverlap != 32 {
		t.Errorf("default ingest: %+v", cfg.Ingest)
	}
	if len(cfg.Ingest.Extensions) != len(DefaultExtensions) || cfg.Ingest.Extensions[0] != ".txt" {
		t.Errorf("ingest extensions: got %v", cfg.Ingest.Extensions)
	}
	if !cfg.Watch.EnabledOrDefault() || cfg.Watch.DebounceMS != 500 {
		t.Errorf("default watch: %+v", cfg.Watch)
	}
	if cfg.Log.MaxSizeMB != 0 {
		t.Error("rotation defaults apply only when a log file is set")
	}
	cfg.Ingest.Extensions[0] = ".changed"
	if DefaultExtensions[0] != ".txt" {
		t.Error("ApplyDefaults must not share the DefaultExtensions slice")
	}
}

func TestEmbeddingConfig_BackendConfig(t *testing.T) {
	e := EmbeddingConfig{Provider: "onnx", Dimensions: 384, ModelPath: "/m.onnx", MaxTokens: 128, TimeoutSeconds: 5}
	bc := e.BackendConfig()
	if bc.Provider != "onnx" || bc.Dimensions != 384 || bc.ModelPath != "/m.onnx" || bc.MaxTokens != 128 || bc.TimeoutSeconds != 5 {
		t.Errorf("BackendConfig() = %+v", bc)
	}
}

func TestSave(t *testing.T) {
	for _, name := range []string{"saved.yaml", "saved.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := &Config{
				Server: ServerConfig{Host: "localhost", Port: 9090},
				Index:  IndexConfig{Path: "/tmp/exim"},
			}
			if err := Save(path, cfg); err != nil {
				t.Fatal(err)
			}
			loaded, err := Load(path)
			if err != nil {
				t.Fatal(err)
			}
			if loaded.Server.Port != 9090 || loaded.Index.Path != "/tmp/exim" {
				t.Errorf("loaded: %+v %+v", loaded.Server, loaded.Index)
			}
		})
	}
}
