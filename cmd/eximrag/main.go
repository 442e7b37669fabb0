// Package main is the eximrag CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/eximrag/internal/cli"
	"github.com/hyperjump/eximrag/internal/config"
	"github.com/hyperjump/eximrag/internal/embedding"
	"github.com/hyperjump/eximrag/internal/indexer"
	"github.com/hyperjump/eximrag/internal/remote"
	"github.com/hyperjump/eximrag/internal/retrieval"
	"github.com/hyperjump/eximrag/internal/server"
	"github.com/hyperjump/eximrag/internal/vector"
	"github.com/hyperjump/eximrag/internal/watcher"
	"github.com/hyperjump/eximrag/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/eximrag/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if it exists, so running from a project dir picks up the
// project's config. Returns the config and the path actually loaded.
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
	// API keys may live in a local .env; missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "serve", "server":
		runServe()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "stats":
		runStats()
	case "version", "--version", "-v":
		fmt.Printf("eximrag version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewRotatingLogger(debugMode, cfg.LogRotation())
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if cfg.Watch.EnabledOrDefault() {
		reloader := watcher.NewReloader(
			cfg.Index.Path,
			components.Store,
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
			watcher.WithLogger(logger),
		)
		if err := reloader.Start(ctx); err != nil {
			logger.Fatal("Failed to start snapshot watcher", zap.Error(err))
		}
		defer reloader.Stop()
	}

	srv := server.NewServer(components.Store, components.Embeddings, cfg.Index.Path, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); serverFailed(err) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = srv.Stop(stopCtx)
}

// serverFailed reports whether err from Server.Start is a real failure rather
// than the result of a graceful Stop.
func serverFailed(err error) bool {
	return err != nil && !errors.Is(err, http.ErrServerClosed)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	var meta cli.KeyValueFlag
	fs.Var(&meta, "meta", "metadata key=value attached to every chunk (repeatable)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: eximrag ingest [flags] <file|dir>...")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	metadata, err := cli.ParseMetadata(meta)
	if err != nil {
		fmt.Printf("Invalid metadata: %v\n", err)
		os.Exit(1)
	}

	cfg, logger := mustLoad(*configPath)
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	idx := indexer.NewIndexer(
		components.Embeddings,
		components.Store,
		cfg.Ingest.ChunkSize,
		cfg.Ingest.ChunkOverlap,
		indexer.WithLogger(logger),
	)

	total := &indexer.Report{}
	for _, target := range fs.Args() {
		info, statErr := os.Stat(target)
		if statErr != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", target, statErr)
			continue
		}
		var report *indexer.Report
		if info.IsDir() {
			report, err = idx.IngestDirectory(ctx, target, cfg.Ingest.Extensions, metadata)
		} else {
			report, err = idx.IngestFile(ctx, target, metadata)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed for %s: %v\n", target, err)
			os.Exit(1)
		}
		total.Merge(report)
	}

	if err := components.Store.Save(ctx, cfg.Index.Path); err != nil {
		fmt.Fprintf(os.Stderr, "Saving snapshot failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteIngestReport(os.Stdout, total, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: eximrag search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Filters match chunk metadata exactly:
  --filter source=DGFT         string equality
  --filter country=IN,US       any of the listed values
  --filter year:=2024          JSON value (number, bool)

Examples:
  eximrag search export incentives for rice
  eximrag search --filter source=DGFT --limit 5 "advance authorisation"
  eximrag search --output json --min-score 0.3 duty drawback
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so flag.Parse sees them. The flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
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

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 10, "number of results")
	minScore := fs.Float64("min-score", 0, "drop results scoring below this value")
	var filters cli.KeyValueFlag
	fs.Var(&filters, "filter", "metadata filter key=value (repeatable)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	parsedFilters, err := cli.ParseFilters(filters)
	if err != nil {
		fmt.Printf("Invalid filter: %v\n", err)
		os.Exit(1)
	}

	cfg, logger := mustLoad(*configPath)
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	retriever := retrieval.NewRetriever(
		components.Embeddings,
		components.Store,
		retrieval.WithMinScore(*minScore),
		retrieval.WithLogger(logger),
	)
	response, err := retriever.Retrieve(ctx, queryStr, *limit, parsedFilters)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	cfg, logger := mustLoad(*configPath)
	defer logger.Sync()

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	report := &cli.StatsReport{
		Store:        components.Store.Stats(),
		SnapshotPath: cfg.Index.Path,
	}
	if size, sizeErr := vector.SnapshotSize(cfg.Index.Path); sizeErr == nil {
		report.SnapshotSize = size
	}
	if err := cli.WriteStats(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// mustLoad loads config and builds the logger for one-shot commands, exiting on failure.
func mustLoad(configPath string) (*config.Config, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewRotatingLogger(cfg.Debug, cfg.LogRotation())
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger
}

// Components holds initialized services.
type Components struct {
	Embeddings *embedding.Service
	Store      *vector.Store
	Remote     remote.ObjectStore
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embeddings != nil {
		_ = c.Embeddings.Close()
	}
	if c.Remote != nil {
		_ = c.Remote.Close()
	}
}

// initializeComponents builds the embedding service and vector store and loads
// the snapshot at cfg.Index.Path when one exists.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	backend, err := embedding.NewBackend(ctx, cfg.Embedding.BackendConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding backend: %w", err)
	}
	svc, err := embedding.NewService(backend,
		embedding.WithDimension(cfg.Embedding.Dimensions),
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithCacheSize(cfg.Embedding.CacheSize),
		embedding.WithLogger(logger),
	)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to initialize embedding service: %w", err)
	}
	components := &Components{Embeddings: svc}

	indexType, err := vector.ParseIndexType(cfg.Index.Type)
	if err != nil {
		components.Close()
		return nil, err
	}
	storeOpts := []vector.StoreOption{
		vector.WithIndexType(indexType),
		vector.WithLogger(logger),
		vector.WithOversampleFactor(cfg.Index.OversampleFactor),
	}
	if cfg.Remote.Enabled {
		rs, err := remote.OpenBlobStore(ctx, cfg.Remote.BucketURL, cfg.Remote.Prefix)
		if err != nil {
			components.Close()
			return nil, fmt.Errorf("failed to open remote store: %w", err)
		}
		components.Remote = rs
		storeOpts = append(storeOpts, vector.WithRemote(rs))
	}

	store, err := vector.NewStore(svc.Dimension(), storeOpts...)
	if err != nil {
		components.Close()
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	components.Store = store

	if err := store.Load(ctx, cfg.Index.Path); err != nil {
		if !errors.Is(err, vector.ErrNotFound) {
			components.Close()
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		logger.Info("no snapshot yet, starting empty", zap.String("path", cfg.Index.Path))
	}
	logger.Debug("vector store initialized",
		zap.String("type", string(indexType)),
		zap.Int("dimension", store.Dimension()),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()),
		zap.Bool("remote", components.Remote != nil),
	)
	return components, nil
}

func printUsage() {
	fmt.Println(`eximrag - Local semantic retrieval for trade and regulatory documents

Usage:
  eximrag serve [flags]                 Start the ops server (health, stats, metrics)
  eximrag ingest [flags] <file|dir>...  Chunk, embed and index documents
  eximrag search [flags] <query>        Search the index
  eximrag stats [flags]                 Show index and snapshot statistics
  eximrag version                       Show version
  eximrag help                          Show this help

Serve Flags:
  --config string    Config file path (default: /usr/local/etc/eximrag/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --config string    Config file path
  --meta key=value   Metadata attached to every chunk (repeatable)
  --output string    Output format: text or json (default: text)

Search Flags:
  --config string     Config file path
  --limit int         Number of results (default: 10)
  --min-score float   Drop results scoring below this value
  --filter key=value  Metadata filter (repeatable; k=v1,v2 for any-of, k:=json for typed values)
  --output string     Output format: text or json (default: text)

Stats Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)

Examples:
  eximrag ingest --meta source=DGFT --meta country=IN ./policies
  eximrag search --filter source=DGFT "duty drawback rates"
  eximrag stats --output json
  eximrag serve`)
}
