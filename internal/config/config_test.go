package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  snapshot_path: "./snapshot.gob"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.SnapshotPath != filepath.Join(dir, "snapshot.gob") {
		t.Errorf("snapshot_path not expanded: %s", cfg.Storage.SnapshotPath)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set")
	}
	if cfg.Chunking.MaxChunkSize != 1000 {
		t.Errorf("max_chunk_size default = %d, want 1000", cfg.Chunking.MaxChunkSize)
	}
	if cfg.Chunking.Overlap != 100 {
		t.Errorf("overlap default = %d, want 100", cfg.Chunking.Overlap)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("top_k default = %d, want 5", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.Threshold != 0.3 {
		t.Errorf("threshold default = %f, want 0.3", cfg.Retrieval.Threshold)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("dimensions default = %d, want 384", cfg.Embedding.Dimensions)
	}
	if cfg.Storage.StoreType != "memory" {
		t.Errorf("store_type default = %s, want memory", cfg.Storage.StoreType)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestAuthConfig_ResolveSecret(t *testing.T) {
	a := &AuthConfig{Secret: "literal", SecretEnv: "KOTAE_TEST_SECRET"}
	if a.ResolveSecret() != "literal" {
		t.Error("literal secret should win")
	}
	a = &AuthConfig{SecretEnv: "KOTAE_TEST_SECRET"}
	t.Setenv("KOTAE_TEST_SECRET", "from-env")
	if a.ResolveSecret() != "from-env" {
		t.Error("env secret should be used when literal is empty")
	}
	a = &AuthConfig{}
	if a.ResolveSecret() != "" {
		t.Error("no secret configured should resolve to empty")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := &Config{}
	ApplyDefaults(cfg)
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Retrieval.TopK != cfg.Retrieval.TopK {
		t.Errorf("round-trip top_k = %d, want %d", loaded.Retrieval.TopK, cfg.Retrieval.TopK)
	}
}
