// Package main is the kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/blob"
	"github.com/kotae-ai/kotae/internal/cli"
	"github.com/kotae-ai/kotae/internal/config"
	"github.com/kotae-ai/kotae/internal/embedding"
	"github.com/kotae-ai/kotae/internal/generate"
	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/internal/parser"
	"github.com/kotae-ai/kotae/internal/pipeline"
	"github.com/kotae-ai/kotae/internal/query"
	"github.com/kotae-ai/kotae/internal/rerank"
	"github.com/kotae-ai/kotae/internal/server"
	"github.com/kotae-ai/kotae/internal/splitter"
	"github.com/kotae-ai/kotae/internal/store"
	"github.com/kotae-ai/kotae/internal/tasks"
	"github.com/kotae-ai/kotae/internal/vectorindex"
	"github.com/kotae-ai/kotae/internal/watcher"
	"github.com/kotae-ai/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists it
// is used, so that "kotae server" from the project dir uses the project's
// config (including debug).
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
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "retrieve":
		runRetrieve()
	case "status":
		runStatus()
	case "delete":
		runDelete()
	case "resubmit":
		runResubmit()
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
	debug := fs.Bool("debug", false, "enable debug logging (ingestion stages, retrieval, watch events)")
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

	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		watchSvc = watcher.New(cfg.Watch.Directories, components.Store, components.Blobs,
			components.Pipeline, components.Queue, logger)
		if err := watchSvc.Start(context.Background()); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(
		components.Store,
		components.Blobs,
		components.Pipeline,
		components.Queue,
		components.Orchestrator,
		components.Index,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
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
	components.Queue.Stop()
	if cfg.Storage.VectorIndexPath != "" {
		if err := components.Index.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = ingest directly without a running server)")
	ownerRef := fs.String("owner", "", "opaque owner reference stored with the document")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ingest [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	if *serverURL != "" {
		id, err := ingestViaHTTP(*serverURL, path, *ownerRef)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Document accepted: %s\n", id)
		return
	}

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
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read file failed: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	doc := &models.SourceDocument{
		ID:         uuid.NewString(),
		Filename:   filepath.Base(path),
		StorageKey: "uploads/" + uuid.NewString(),
	}
	if *ownerRef != "" {
		doc.OwnerRef = ownerRef
	}
	if err := components.Blobs.Put(doc.StorageKey, content); err != nil {
		fmt.Fprintf(os.Stderr, "Store file failed: %v\n", err)
		os.Exit(1)
	}
	if err := components.Store.CreateDocument(ctx, doc); err != nil {
		fmt.Fprintf(os.Stderr, "Create document failed: %v\n", err)
		os.Exit(1)
	}
	if err := components.Pipeline.Run(ctx, doc.ID); err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.VectorIndexPath != "" {
		if err := components.Index.Save(cfg.Storage.VectorIndexPath); err != nil {
			fmt.Fprintf(os.Stderr, "Vector index save failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("Document ingested: %s\n", doc.ID)
}

func ingestViaHTTP(serverURL, path, ownerRef string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", err
	}
	if ownerRef != "" {
		_ = mw.WriteField("owner_ref", ownerRef)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	resp, err := http.Post(serverURL+"/api/v1/documents", mw.FormDataContentType(), &buf)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.ID, nil
}

// buildQuery joins all positional args with spaces so multi-word questions work
// the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// queryArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func queryArgsReorder(args []string) []string {
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
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = answer directly without a running server)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(queryArgsReorder(os.Args[2:]))

	queryStr := buildQuery(fs.Args())
	if queryStr == "" {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var answer models.Answer
	if *serverURL != "" {
		res, err := askViaHTTP(*serverURL, queryStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		answer = *res
	} else {
		components := mustComponents(*configPath)
		defer components.Close()
		res, err := components.Orchestrator.Ask(context.Background(), &models.AskRequest{Query: queryStr})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		answer = *res
	}

	if err := cli.WriteAnswer(os.Stdout, &answer, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL, queryStr string) (*models.Answer, error) {
	body, _ := json.Marshal(&models.AskRequest{Query: queryStr})
	resp, err := http.Post(serverURL+"/api/v1/query/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var answer models.Answer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &answer, nil
}

func runRetrieve() {
	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = retrieve directly without a running server)")
	topK := fs.Int("top-k", 0, "recall depth (0 = server default)")
	topN := fs.Int("top-n", 0, "number of results (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(queryArgsReorder(os.Args[2:]))

	queryStr := buildQuery(fs.Args())
	if queryStr == "" {
		fmt.Println("Usage: kotae retrieve [flags] <query>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	req := &models.RetrieveRequest{Query: queryStr, TopK: *topK, TopN: *topN}
	var candidates []*models.RetrievalCandidate
	if *serverURL != "" {
		res, err := retrieveViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Retrieve failed: %v\n", err)
			os.Exit(1)
		}
		candidates = res
	} else {
		components := mustComponents(*configPath)
		defer components.Close()
		res, err := components.Orchestrator.Retrieve(context.Background(), req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Retrieve failed: %v\n", err)
			os.Exit(1)
		}
		candidates = res
	}

	if err := cli.WriteCandidates(os.Stdout, candidates, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func retrieveViaHTTP(serverURL string, req *models.RetrieveRequest) ([]*models.RetrievalCandidate, error) {
	body, _ := json.Marshal(req)
	resp, err := http.Post(serverURL+"/api/v1/query/retrieve", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Candidates []*models.RetrievalCandidate `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Candidates, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read storage directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var status cli.Status
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		components := mustComponents(*configPath)
		defer components.Close()
		docs, docsByStatus, chunks, err := components.Store.Counts(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count failed: %v\n", err)
			os.Exit(1)
		}
		byStatus := make(map[string]int, len(docsByStatus))
		for s, n := range docsByStatus {
			byStatus[string(s)] = n
		}
		status = cli.Status{
			Documents:         docs,
			DocumentsByStatus: byStatus,
			Chunks:            chunks,
			VectorIndexSize:   components.Index.Size(),
		}
	}

	if err := cli.WriteStatus(os.Stdout, &status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*cli.Status, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s cli.Status
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = delete directly)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	if *serverURL != "" {
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/documents/"+docID, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Delete failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
	} else {
		components := mustComponents(*configPath)
		defer components.Close()
		if err := components.Pipeline.Delete(context.Background(), docID); err != nil {
			fmt.Fprintf(os.Stderr, "Deletion failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func runResubmit() {
	fs := flag.NewFlagSet("resubmit", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae resubmit [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	resp, err := http.Post(*serverURL+"/api/v1/documents/"+docID+"/resubmit", "application/json", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Resubmit failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Printf("Document resubmitted: %s\n", docID)
}

// Components holds initialized services.
type Components struct {
	Store        *store.SQLiteStore
	Blobs        blob.Store
	Embedder     embedding.Embedder
	Reranker     rerank.Reranker
	Generator    generate.Generator
	Index        vectorindex.Index
	Pipeline     *pipeline.Pipeline
	Queue        *tasks.Queue
	Orchestrator *query.Orchestrator
}

func (c *Components) Close() {
	if c.Queue != nil {
		c.Queue.Stop()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Reranker != nil {
		_ = c.Reranker.Close()
	}
	if c.Generator != nil {
		_ = c.Generator.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func mustComponents(configPath string) *Components {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	st, err := store.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	blobs, err := blob.NewFileStore(cfg.Storage.BlobDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	embedder, err := embedding.New(embedding.Config{
		Type:           cfg.Embedding.Type,
		BaseURL:        cfg.Embedding.BaseURL,
		Model:          cfg.Embedding.Model,
		TimeoutSeconds: cfg.Embedding.TimeoutSeconds,
		ModelPath:      cfg.Embedding.ModelPath,
		MaxTokens:      cfg.Embedding.MaxTokens,
		Dimensions:     cfg.Embedding.Dimensions,
		CacheSize:      cfg.Embedding.CacheSize,
	})
	if err != nil {
		logger.Warn("embedder unavailable, falling back to mock",
			zap.String("type", cfg.Embedding.Type), zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}

	reranker, err := rerank.New(rerank.Config{
		Type:           cfg.Rerank.Type,
		BaseURL:        cfg.Rerank.BaseURL,
		Model:          cfg.Rerank.Model,
		TimeoutSeconds: cfg.Rerank.TimeoutSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reranker: %w", err)
	}

	generator, err := generate.New(generate.Config{
		Type:           cfg.Generation.Type,
		BaseURL:        cfg.Generation.BaseURL,
		Model:          cfg.Generation.Model,
		TimeoutSeconds: cfg.Generation.TimeoutSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	idx, err := vectorindex.New(vectorindex.Config{
		Type:           cfg.VectorIndex.Type,
		Dimensions:     cfg.Embedding.Dimensions,
		URL:            cfg.VectorIndex.URL,
		APIKey:         cfg.VectorIndex.APIKey,
		Collection:     cfg.VectorIndex.Collection,
		TimeoutSeconds: cfg.VectorIndex.TimeoutSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if cfg.Storage.VectorIndexPath != "" {
		if loadErr := idx.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			logger.Warn("vector index load skipped",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}
	logger.Info("vector index initialized",
		zap.String("type", cfg.VectorIndex.Type),
		zap.Int("size", idx.Size()))

	sp, err := splitter.New(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize splitter: %w", err)
	}

	pl := pipeline.New(st, blobs, parser.New(), sp, embedder, idx, store.DefaultLeaseTTL, logger)
	q := tasks.New(pl, tasks.Config{
		Workers:     cfg.Tasks.Workers,
		QueueSize:   cfg.Tasks.QueueSize,
		MaxAttempts: cfg.Tasks.MaxAttempts,
		Backoff:     time.Duration(cfg.Tasks.BackoffSeconds) * time.Second,
	}, logger)

	orch := query.New(embedder, idx, st, reranker, generator, query.Config{
		TopK:                 cfg.Retrieval.TopK,
		TopN:                 cfg.Retrieval.TopN,
		EmbeddingInstruction: cfg.Embedding.Instruction,
	}, logger)

	return &Components{
		Store:        st,
		Blobs:        blobs,
		Embedder:     embedder,
		Reranker:     reranker,
		Generator:    generator,
		Index:        idx,
		Pipeline:     pl,
		Queue:        q,
		Orchestrator: orch,
	}, nil
}

func printUsage() {
	fmt.Println(`kotae - Local document question answering

Usage:
  kotae server [flags]              Start the HTTP server
  kotae ingest [flags] <file>       Upload a document for ingestion
  kotae ask [flags] <question>      Ask a question over ingested documents
  kotae retrieve [flags] <query>    Retrieve relevant chunks without generation
  kotae status [flags]              Show collection and index status
  kotae delete [flags] <id>         Delete a document and its derived data
  kotae resubmit [flags] <id>       Re-run ingestion for a failed document
  kotae version                     Show version
  kotae help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging (ingestion stages, retrieval, watch events)

Ingest Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to ingest directly.
  --owner string     Opaque owner reference stored with the document

Ask / Retrieve Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct mode.
  --output string    Output format: text or json (default: text)
  --top-k int        Recall depth (retrieve only; 0 = default)
  --top-n int        Number of results (retrieve only; 0 = default)

Examples:
  kotae server
  kotae ingest report.pdf
  kotae ask "What were the Q3 findings?"
  kotae retrieve --top-n 10 quarterly revenue
  kotae status --output json
  kotae delete 5a3c...-...
  kotae resubmit 5a3c...-...`)
}
