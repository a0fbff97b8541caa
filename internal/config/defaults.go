package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Docs.Path == "" {
		cfg.Docs.Path = "./docs"
	}
	if cfg.Docs.Extensions == nil {
		cfg.Docs.Extensions = []string{".md", ".mdx", ".txt", ".pdf"}
	}
	if cfg.Docs.CorpusTitle == "" {
		cfg.Docs.CorpusTitle = "Physical AI & Humanoid Robotics"
	}
	if cfg.Chunking.MaxChunkSize == 0 {
		cfg.Chunking.MaxChunkSize = 1000
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 100
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.Threshold == 0 {
		cfg.Retrieval.Threshold = 0.3
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kotae/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "template"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4o-mini"
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 500
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.3
	}
	if cfg.Storage.StoreType == "" {
		cfg.Storage.StoreType = "memory"
	}
	if cfg.Storage.SnapshotPath == "" {
		cfg.Storage.SnapshotPath = "/usr/local/var/kotae/data/index/snapshot.gob"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kotae/data/index/chunks.db"
	}
	if cfg.Auth.SecretEnv == "" {
		cfg.Auth.SecretEnv = "KOTAE_AUTH_SECRET"
	}
	if cfg.Watch.DebounceSeconds == 0 {
		cfg.Watch.DebounceSeconds = 5
	}
}
