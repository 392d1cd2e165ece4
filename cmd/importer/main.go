package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/w-h-a/rag/document"
	"github.com/w-h-a/rag/embedder"
	"github.com/w-h-a/rag/internal/providers"
	"github.com/w-h-a/rag/internal/service/importer"
	vectorindex "github.com/w-h-a/rag/vector_index"
)

var (
	cfg struct {
		// Input config
		Documents string `help:"Path to the documents export JSON" default:"" env:"RAG_IMPORT_DOCUMENTS"`
		Vectors   string `help:"Path to a precomputed vector export JSON" default:"" env:"RAG_IMPORT_VECTORS"`
		Embed     bool   `help:"Embed document content and upsert it into the vector index" default:"false"`

		// Batch config
		BatchSize   int `help:"Records per batch" default:"100"`
		Concurrency int `help:"Batches in flight" default:"4"`

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
	}
)

func main() {
	// Parse inputs
	_ = godotenv.Load()
	_ = kong.Parse(&cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if len(cfg.Documents) == 0 && len(cfg.Vectors) == 0 {
		exitOn(ctx, "nothing to import", os.ErrInvalid)
	}

	opts := []importer.Option{
		importer.WithBatchSize(cfg.BatchSize),
		importer.WithConcurrency(cfg.Concurrency),
	}

	if len(cfg.Documents) > 0 {
		store, err := providers.DocumentStore(
			cfg.DocumentStore,
			document.WithLocation(cfg.DocumentLocation),
			document.WithTable(cfg.DocumentTable),
		)
		exitOn(ctx, "failed to create document store", err)
		opts = append(opts, importer.WithDocumentStore(store))
	}

	if cfg.Embed || len(cfg.Vectors) > 0 {
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
		opts = append(opts, importer.WithVectorIndex(index))
	}

	if cfg.Embed {
		embedderOpts := []embedder.Option{
			embedder.WithApiKey(cfg.EmbedderKey),
			embedder.WithBaseURL(cfg.EmbedderURL),
		}
		if len(cfg.EmbedderModel) > 0 {
			embedderOpts = append(embedderOpts, embedder.WithModel(cfg.EmbedderModel))
		}
		emb, err := providers.Embedder(cfg.Embedder, embedderOpts...)
		exitOn(ctx, "failed to create embedder", err)
		opts = append(opts, importer.WithEmbedder(emb))
	}

	svc := importer.New(opts...)

	// Import documents
	if len(cfg.Documents) > 0 {
		f, err := os.Open(cfg.Documents)
		exitOn(ctx, "failed to open documents export", err)

		export, err := importer.DecodeExport(f)
		f.Close()
		exitOn(ctx, "failed to read documents export", err)

		slog.InfoContext(ctx, "importing documents", "total", export.TotalDocuments, "records", len(export.Documents))

		report, err := svc.ImportDocuments(ctx, export)
		slog.InfoContext(ctx, "imported documents", "documents", report.Documents, "vectors", report.Vectors)
		exitOn(ctx, "failed to import documents", err)
	}

	// Import vectors
	if len(cfg.Vectors) > 0 {
		f, err := os.Open(cfg.Vectors)
		exitOn(ctx, "failed to open vector export", err)

		export, err := importer.DecodeVectorExport(f)
		f.Close()
		exitOn(ctx, "failed to read vector export", err)

		slog.InfoContext(ctx, "importing vectors", "total", export.TotalVectors, "dimension", export.Dimension)

		report, err := svc.ImportVectors(ctx, export)
		slog.InfoContext(ctx, "imported vectors", "vectors", report.Vectors)
		exitOn(ctx, "failed to import vectors", err)
	}
}

func exitOn(ctx context.Context, detail string, err error) {
	if err == nil {
		return
	}
	slog.ErrorContext(ctx, detail, "error", err)
	os.Exit(1)
}
