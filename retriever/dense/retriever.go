package dense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/w-h-a/rag/document"
	"github.com/w-h-a/rag/retriever"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/w-h-a/rag/retriever/dense")

type denseRetriever struct {
	options retriever.Options
}

func (r *denseRetriever) Retrieve(ctx context.Context, query string) ([]document.Document, error) {
	ctx, span := tracer.Start(ctx, "rag.retrieve.dense")
	defer span.End()

	vector, err := r.options.Embedder.Embed(ctx, query)
	if err != nil {
		return r.degrade(ctx, span, "embed query", err)
	}

	if err := validate(vector, r.options.Dimension); err != nil {
		return r.degrade(ctx, span, "embed query", err)
	}

	matches, err := r.options.VectorIndex.Query(ctx, vector, r.options.TopK)
	if err != nil {
		return r.degrade(ctx, span, "vector index query", err)
	}

	span.SetAttributes(attribute.Int("rag.dense.matches", len(matches)))

	docs := make([]document.Document, 0, len(matches))

	for _, match := range matches {
		doc, err := r.options.DocumentStore.FindById(ctx, match.Id)
		if errors.Is(err, document.ErrNotFound) {
			continue
		}
		if err != nil {
			slog.WarnContext(ctx, "failed to hydrate vector match", "id", match.Id, "error", err)
			continue
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func (r *denseRetriever) degrade(ctx context.Context, span trace.Span, op string, err error) ([]document.Document, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	slog.WarnContext(ctx, op+" failed, continuing without dense results", "error", err)
	return []document.Document{}, retriever.Degraded("dense "+op, err)
}

func validate(vector []float32, dim int) error {
	if len(vector) != dim {
		return fmt.Errorf("embedding has %d dimensions, want %d", len(vector), dim)
	}

	for i, v := range vector {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("embedding component %d is not a finite number", i)
		}
	}

	return nil
}

func NewRetriever(opts ...retriever.Option) retriever.Retriever {
	options := retriever.NewOptions(opts...)

	if options.Embedder == nil ||
		options.VectorIndex == nil ||
		options.DocumentStore == nil {
		panic("missing embedder, vector index, or document store for dense retriever")
	}

	return &denseRetriever{
		options: options,
	}
}
