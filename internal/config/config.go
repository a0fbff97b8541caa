// Package config provides configuration loading and structs for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Docs       DocsConfig       `yaml:"docs"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Storage    StorageConfig    `yaml:"storage"`
	Auth       AuthConfig       `yaml:"auth"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DocsConfig describes the document corpus.
type DocsConfig struct {
	Path        string   `yaml:"path"`
	Extensions  []string `yaml:"extensions"`
	CorpusTitle string   `yaml:"corpus_title"`
}

// ChunkingConfig holds segmenter settings.
type ChunkingConfig struct {
	MaxChunkSize int `yaml:"max_chunk_size"`
	Overlap      int `yaml:"overlap"`
}

// RetrievalConfig holds similarity search settings.
type RetrievalConfig struct {
	TopK      int     `yaml:"top_k"`
	Threshold float64 `yaml:"threshold"`
}

// EmbeddingConfig selects and configures the embedding backend.
// Provider is one of "onnx", "openai", or "hash".
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	APIKeyEnv  string `yaml:"api_key_env"`
}

// GenerationConfig selects and configures the answer generation backend.
// Provider is one of "openai" or "template".
type GenerationConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// StorageConfig holds vector store settings. StoreType is "memory" (gob snapshot
// file) or "sqlite".
type StorageConfig struct {
	StoreType    string `yaml:"store_type"`
	SnapshotPath string `yaml:"snapshot_path"`
	DatabasePath string `yaml:"database_path"`
}

// AuthConfig holds the shared-secret authentication settings. When both Secret and
// the environment variable named by SecretEnv are empty, authentication is disabled.
type AuthConfig struct {
	Secret    string `yaml:"secret"`
	SecretEnv string `yaml:"secret_env"`
}

// ResolveSecret returns the configured secret, preferring the literal value over
// the environment variable named by SecretEnv.
func (a *AuthConfig) ResolveSecret() string {
	if a.Secret != "" {
		return a.Secret
	}
	if a.SecretEnv != "" {
		return os.Getenv(a.SecretEnv)
	}
	return ""
}

// WatchConfig holds docs-directory watch settings. When enabled, changes under
// Docs.Path trigger a full index rebuild after the debounce interval.
type WatchConfig struct {
	Enabled         bool `yaml:"enabled"`
	DebounceSeconds int  `yaml:"debounce_seconds"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Docs.Path = expandPath(cfg.Docs.Path, configDir)
	cfg.Storage.SnapshotPath = expandPath(cfg.Storage.SnapshotPath, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to
// configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
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
