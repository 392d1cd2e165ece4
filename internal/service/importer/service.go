package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/w-h-a/rag/document"
	"golang.org/x/sync/errgroup"
)

type Report struct {
	Documents int
	Vectors   int
}

type Service struct {
	options Options
}

// ImportDocuments upserts every record into the document store. When both an
// embedder and a vector index are configured the content is embedded and
// indexed under the same id. Batches run concurrently and the first failure
// stops the import.
func (s *Service) ImportDocuments(ctx context.Context, export Export) (Report, error) {
	if s.options.DocumentStore == nil {
		return Report{}, errors.New("document store is required")
	}

	embed := s.options.Embedder != nil && s.options.VectorIndex != nil

	var docs atomic.Int64
	var vecs atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.options.Concurrency)

	for start, batch := range batches(export.Documents, s.options.BatchSize) {
		g.Go(func() error {
			for _, rec := range batch {
				doc := document.Document{
					Id:       rec.Id,
					Content:  rec.Content,
					Source:   rec.Source,
					Metadata: document.DecodeMetadata(rec.Metadata),
				}

				if err := s.options.DocumentStore.Upsert(gctx, doc); err != nil {
					return fmt.Errorf("upsert document %s: %w", rec.Id, err)
				}
				docs.Add(1)

				if !embed {
					continue
				}

				vector, err := s.options.Embedder.Embed(gctx, rec.Content)
				if err != nil {
					return fmt.Errorf("embed document %s: %w", rec.Id, err)
				}

				if err := s.options.VectorIndex.Upsert(gctx, rec.Id, vector, map[string]any{"source": rec.Source}); err != nil {
					return fmt.Errorf("upsert vector %s: %w", rec.Id, err)
				}
				vecs.Add(1)
			}

			slog.InfoContext(gctx, "imported batch", "offset", start, "size", len(batch))

			return nil
		})
	}

	err := g.Wait()

	return Report{Documents: int(docs.Load()), Vectors: int(vecs.Load())}, err
}

// ImportVectors upserts precomputed embeddings into the vector index.
func (s *Service) ImportVectors(ctx context.Context, export VectorExport) (Report, error) {
	if s.options.VectorIndex == nil {
		return Report{}, errors.New("vector index is required")
	}

	var vecs atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.options.Concurrency)

	for start, batch := range batches(export.Vectors, s.options.BatchSize) {
		g.Go(func() error {
			for _, rec := range batch {
				if err := s.options.VectorIndex.Upsert(gctx, rec.Id, rec.Vector, rec.Metadata); err != nil {
					return fmt.Errorf("upsert vector %s: %w", rec.Id, err)
				}
				vecs.Add(1)
			}

			slog.InfoContext(gctx, "imported batch", "offset", start, "size", len(batch))

			return nil
		})
	}

	err := g.Wait()

	return Report{Vectors: int(vecs.Load())}, err
}

// batches yields consecutive chunks of at most size items keyed by offset.
func batches[T any](items []T, size int) func(yield func(int, []T) bool) {
	return func(yield func(int, []T) bool) {
		for start := 0; start < len(items); start += size {
			end := min(start+size, len(items))
			if !yield(start, items[start:end]) {
				return
			}
		}
	}
}

func New(opts ...Option) *Service {
	return &Service{
		options: NewOptions(opts...),
	}
}
