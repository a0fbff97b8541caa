// Package main is the kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/auth"
	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/loader"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/rag"
	"github.com/hyperjump/kotae/internal/responder"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/vectorstore"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys and the auth secret are commonly kept in a local .env file.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "build":
		runBuild()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "clear":
		runClear()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	pipeline := components.Pipeline
	if _, err := pipeline.BuildIndex(context.Background(), false); err != nil {
		logger.Fatal("Failed to build index", zap.Error(err))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if cfg.Watch.Enabled {
		watchOpts := []watcher.Option{watcher.WithLogger(logger)}
		if cfg.Watch.DebounceSeconds > 0 {
			watchOpts = append(watchOpts, watcher.WithDebounce(time.Duration(cfg.Watch.DebounceSeconds)*time.Second))
		}
		watchSvc = watcher.NewWatcher(cfg.Docs.Path, cfg.Docs.Extensions, func() {
			if _, err := pipeline.BuildIndex(context.Background(), true); err != nil {
				logger.Warn("watch rebuild failed", zap.Error(err))
			}
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(pipeline, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	force := fs.Bool("force", false, "clear and rebuild even if the index is populated")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	count, err := components.Pipeline.BuildIndex(context.Background(), *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Index build failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d chunk(s) from %s\n", count, cfg.Docs.Path)
}

// askArgsReorder moves flags that appear after the question to the front so
// flag.Parse sees them. The flag package stops at the first non-flag argument.
func askArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runAsk() {
	askArgs := askArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = answer locally without a server)")
	selected := fs.String("selected", "", "selected text to explain instead of searching the corpus")
	token := fs.String("token", "", "auth token (defaults to the configured secret's env var)")
	showSources := fs.Bool("sources", false, "print retrieval sources after the reply")
	_ = fs.Parse(askArgs)

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}

	req := models.ChatRequest{
		Message:      question,
		SelectedText: *selected,
		AuthToken:    *token,
	}

	var result models.QueryResult
	if *serverURL != "" {
		res, err := queryViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		result = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize components", zap.Error(err))
		}
		defer components.Close()

		if _, err := components.Pipeline.BuildIndex(context.Background(), false); err != nil {
			fmt.Fprintf(os.Stderr, "Index build failed: %v\n", err)
			os.Exit(1)
		}
		result = components.Pipeline.Query(context.Background(), req)
	}

	fmt.Println(result.Reply)
	if *showSources && len(result.Sources) > 0 {
		fmt.Println()
		for _, src := range result.Sources {
			fmt.Printf("  %.3f  %s (%s)\n", src.Similarity, src.Section, src.SourceFile)
		}
	}
}

func queryViaHTTP(serverURL string, req models.ChatRequest) (*models.QueryResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var result models.QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read the index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var stats rag.Stats
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		stats = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		stats = components.Pipeline.Stats()
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("total_embeddings:   %d   # indexed chunk vectors\n", stats.TotalEmbeddings)
		fmt.Printf("embeddings_loaded:  %t\n", stats.EmbeddingsLoaded)
		fmt.Printf("docs_path:          %s\n", stats.DocsPath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*rag.Stats, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var stats rag.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &stats, nil
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if err := components.Pipeline.Clear(); err != nil {
		fmt.Fprintf(os.Stderr, "Clear failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Index cleared")
}

// Components holds initialized services.
type Components struct {
	Store    vectorstore.Store
	Embedder *embedding.FailSoft
	Pipeline *rag.Pipeline
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := vectorstore.NewStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	failSoft := embedding.NewFailSoft(embedder, logger)

	generator := newGenerator(cfg, logger)
	rs := responder.NewResponder(generator, cfg.Docs.CorpusTitle, responder.WithLogger(logger))

	ld := loader.NewLoader(cfg.Docs.Path, cfg.Docs.Extensions, cfg.Docs.CorpusTitle, loader.WithLogger(logger))
	ck := chunker.NewChunker(cfg.Chunking.MaxChunkSize, cfg.Chunking.Overlap)
	authn := auth.NewAuthenticator(cfg.Auth.ResolveSecret())

	pipeline := rag.NewPipeline(cfg, ld, ck, failSoft, store, rs, authn, rag.WithLogger(logger))

	return &Components{
		Store:    store,
		Embedder: failSoft,
		Pipeline: pipeline,
	}, nil
}

// newEmbedder picks the embedding backend from config, falling back to the
// deterministic hash embedder when the configured backend cannot start.
func newEmbedder(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		remote, err := embedding.NewRemoteEmbedder(
			cfg.Embedding.BaseURL,
			cfg.Embedding.APIKeyEnv,
			cfg.Embedding.Model,
			cfg.Embedding.Dimensions,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			logger.Warn("remote embedder unavailable, falling back to hash embedder", zap.Error(err))
			return embedding.NewHashEmbedder(cfg.Embedding.Dimensions), nil
		}
		return remote, nil
	case "hash":
		return embedding.NewHashEmbedder(cfg.Embedding.Dimensions), nil
	default:
		onnx, err := embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			logger.Warn("ONNX embedder unavailable, falling back to hash embedder", zap.Error(err))
			return embedding.NewHashEmbedder(cfg.Embedding.Dimensions), nil
		}
		return onnx, nil
	}
}

// newGenerator picks the answer generation backend. A nil generator means
// template-only responses.
func newGenerator(cfg *config.Config, logger *zap.Logger) responder.Generator {
	if cfg.Generation.Provider != "openai" {
		return nil
	}
	gen, err := responder.NewOpenAIGenerator(
		cfg.Generation.BaseURL,
		cfg.Generation.APIKeyEnv,
		cfg.Generation.Model,
		cfg.Generation.MaxTokens,
		cfg.Generation.Temperature,
	)
	if err != nil {
		logger.Warn("LLM generator unavailable, using template responses", zap.Error(err))
		return nil
	}
	return gen
}

func printUsage() {
	fmt.Println(`kotae - Grounded question answering over a documentation corpus

Usage:
  kotae server [flags]          Start the HTTP server
  kotae build [flags]           Build the vector index from the docs directory
  kotae ask [flags] <question>  Ask a question (via server or locally)
  kotae status [flags]          Show index status
  kotae clear [flags]           Clear the vector index
  kotae version                 Show version
  kotae help                    Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Build Flags:
  --config string    Config file path
  --force            Clear and rebuild even if the index is populated

Ask Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to answer locally.
  --selected string  Selected text to explain instead of searching the corpus
  --token string     Auth token when the server requires one
  --sources          Print retrieval sources after the reply

Status Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for local mode.
  --output string    Output format: text or json (default: text)

Examples:
  kotae server
  kotae build --force
  kotae ask "what is a humanoid robot"
  kotae ask --selected "Actuators convert energy into motion." explain this
  kotae status --output json
  kotae clear`)
}
