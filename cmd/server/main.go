package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/w-h-a/rag"
	"github.com/w-h-a/rag/document"
	"github.com/w-h-a/rag/embedder"
	"github.com/w-h-a/rag/generator"
	"github.com/w-h-a/rag/internal/providers"
	"github.com/w-h-a/rag/internal/service/pipeline"
	"github.com/w-h-a/rag/memory_manager/providers/kv"
	"github.com/w-h-a/rag/server"
	httpserver "github.com/w-h-a/rag/server/http"
	vectorindex "github.com/w-h-a/rag/vector_index"
)

var (
	cfg struct {
		// Server config
		Address string `help:"Address to serve the query API on" default:":8787" env:"RAG_ADDR"`

		// Document store config
		DocumentStore    string `help:"Document store provider (postgres|memory)" default:"postgres" env:"RAG_DOCUMENT_STORE"`
		DocumentLocation string `help:"Address of the document store" default:"" env:"RAG_DOCUMENT_LOCATION"`
		DocumentTable    string `help:"Table holding document chunks" default:"documents" env:"RAG_DOCUMENT_TABLE"`

		// Vector index config
		VectorIndex      string `help:"Vector index provider (postgres|qdrant|memory|none)" default:"postgres" env:"RAG_VECTOR_INDEX"`
		VectorLocation   string `help:"Address of the vector index" default:"" env:"RAG_VECTOR_LOCATION"`
		VectorKey        string `help:"API Key for the vector index" default:"" env:"RAG_VECTOR_KEY"`
		VectorCollection string `help:"Collection or table holding embeddings" default:"document_embeddings" env:"RAG_VECTOR_COLLECTION"`
		VectorSize       int    `help:"Embedding dimension" default:"1536" env:"RAG_VECTOR_SIZE"`

		// Embedder config
		Embedder      string `help:"Embedder provider (openai|google|none)" default:"openai" env:"RAG_EMBEDDER"`
		EmbedderKey   string `help:"API Key for the embedder" default:"" env:"RAG_EMBEDDER_KEY"`
		EmbedderModel string `help:"Model identifier for embedder" default:"" env:"RAG_EMBEDDER_MODEL"`
		EmbedderURL   string `help:"Optional base URL for the embedder" default:"" env:"RAG_EMBEDDER_URL"`

		// Generator config
		Generator          string `help:"Generator provider (openai|anthropic|google|none)" default:"openai" env:"RAG_GENERATOR"`
		GeneratorKey       string `help:"API Key for the generator" default:"" env:"RAG_GENERATOR_KEY"`
		GeneratorModel     string `help:"Model identifier for generator" default:"" env:"RAG_GENERATOR_MODEL"`
		GeneratorURL       string `help:"Optional base URL for the generator" default:"" env:"RAG_GENERATOR_URL"`
		GeneratorMaxTokens int    `help:"Completion token limit" default:"1024" env:"RAG_GENERATOR_MAX_TOKENS"`

		// Conversation memory config
		KV         string `help:"Conversation store provider (redis|memory|none)" default:"redis" env:"RAG_KV"`
		KVLocation string `help:"Address of the conversation store" default:"redis://localhost:6379/0" env:"RAG_KV_LOCATION"`
		KVPrefix   string `help:"Key prefix for conversation history" default:"" env:"RAG_KV_PREFIX"`

		// Ranking config
		DenseWeight  float64 `help:"Weight of the dense retriever in fusion" default:"0.5" env:"RAG_DENSE_WEIGHT"`
		SparseWeight float64 `help:"Weight of the sparse retriever in fusion" default:"0.5" env:"RAG_SPARSE_WEIGHT"`
	}
)

func main() {
	// Parse inputs
	_ = godotenv.Load()
	_ = kong.Parse(&cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create providers
	store, err := providers.DocumentStore(
		cfg.DocumentStore,
		document.WithLocation(cfg.DocumentLocation),
		document.WithTable(cfg.DocumentTable),
	)
	exitOn(ctx, "failed to create document store", err)

	// pgvector usually shares the document database
	location := cfg.VectorLocation
	if len(location) == 0 && cfg.VectorIndex == providers.Postgres {
		location = cfg.DocumentLocation
	}

	index, err := providers.VectorIndex(
		cfg.VectorIndex,
		vectorindex.WithLocation(location),
		vectorindex.WithApiKey(cfg.VectorKey),
		vectorindex.WithCollection(cfg.VectorCollection),
		vectorindex.WithVectorSize(cfg.VectorSize),
	)
	exitOn(ctx, "failed to create vector index", err)

	embedderOpts := []embedder.Option{
		embedder.WithApiKey(cfg.EmbedderKey),
		embedder.WithBaseURL(cfg.EmbedderURL),
	}
	if len(cfg.EmbedderModel) > 0 {
		embedderOpts = append(embedderOpts, embedder.WithModel(cfg.EmbedderModel))
	}
	emb, err := providers.Embedder(cfg.Embedder, embedderOpts...)
	exitOn(ctx, "failed to create embedder", err)

	generatorOpts := []generator.Option{
		generator.WithApiKey(cfg.GeneratorKey),
		generator.WithBaseURL(cfg.GeneratorURL),
		generator.WithMaxTokens(cfg.GeneratorMaxTokens),
	}
	if len(cfg.GeneratorModel) > 0 {
		generatorOpts = append(generatorOpts, generator.WithModel(cfg.GeneratorModel))
	}
	gen, err := providers.Generator(cfg.Generator, generatorOpts...)
	exitOn(ctx, "failed to create generator", err)

	kvOpts := []kv.Option{
		kv.WithLocation(cfg.KVLocation),
	}
	if len(cfg.KVPrefix) > 0 {
		kvOpts = append(kvOpts, kv.WithPrefix(cfg.KVPrefix))
	}
	history, err := providers.KV(cfg.KV, kvOpts...)
	exitOn(ctx, "failed to create conversation store", err)

	// Register metrics
	pipeline.RegisterMetrics(prometheus.DefaultRegisterer)
	httpserver.RegisterMetrics(prometheus.DefaultRegisterer)

	// Create RAG
	r := rag.New(store, index, emb, cfg.VectorSize, gen, history, cfg.DenseWeight, cfg.SparseWeight)

	srv := httpserver.NewServer(
		server.WithAddress(cfg.Address),
		httpserver.WithHandler(r.Handler()),
	)

	if err := srv.Start(); err != nil {
		exitOn(ctx, "failed to start server", err)
	}

	slog.InfoContext(ctx, "serving", "address", srv.Address())

	<-ctx.Done()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	if err := srv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(shutdownCtx, "failed to stop server", "error", err)
	}

	if err := r.Close(); err != nil {
		slog.ErrorContext(shutdownCtx, "failed to close rag", "error", err)
	}
}

func exitOn(ctx context.Context, detail string, err error) {
	if err == nil {
		return
	}
	slog.ErrorContext(ctx, detail, "error", err)
	os.Exit(1)
}
