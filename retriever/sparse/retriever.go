package sparse

import (
	"context"
	"log/slog"
	"slices"

	"github.com/w-h-a/rag/document"
	"github.com/w-h-a/rag/retriever"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/w-h-a/rag/retriever/sparse")

type sparseRetriever struct {
	options retriever.Options
}

func (r *sparseRetriever) Retrieve(ctx context.Context, query string) ([]document.Document, error) {
	ctx, span := tracer.Start(ctx, "rag.retrieve.sparse")
	defer span.End()

	terms := Tokenize(query)
	span.SetAttributes(attribute.Int("rag.sparse.terms", len(terms)))

	if len(terms) == 0 {
		return []document.Document{}, nil
	}

	candidates, err := r.options.DocumentStore.FindByKeywords(ctx, terms, r.options.CandidateLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "keyword query failed")
		slog.WarnContext(ctx, "keyword query failed, continuing without sparse results", "error", err)
		return []document.Document{}, retriever.Degraded("sparse keyword query", err)
	}

	span.SetAttributes(attribute.Int("rag.sparse.candidates", len(candidates)))

	if len(candidates) == 0 {
		return []document.Document{}, nil
	}

	contents := make([]string, len(candidates))
	for i, doc := range candidates {
		contents[i] = doc.Content
	}

	avg := AverageLength(contents)

	type scored struct {
		doc   document.Document
		score float64
	}

	ranked := make([]scored, len(candidates))
	for i, doc := range candidates {
		ranked[i] = scored{doc: doc, score: Score(doc.Content, terms, avg)}
	}

	slices.SortStableFunc(ranked, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})

	n := max(0, min(len(ranked), r.options.TopK))

	docs := make([]document.Document, 0, n)
	for _, s := range ranked[:n] {
		docs = append(docs, s.doc)
	}

	return docs, nil
}

func NewRetriever(opts ...retriever.Option) retriever.Retriever {
	options := retriever.NewOptions(opts...)

	if options.DocumentStore == nil {
		panic("missing document store for sparse retriever")
	}

	return &sparseRetriever{
		options: options,
	}
}
