package importer

import (
	"context"

	"github.com/w-h-a/rag/document"
	"github.com/w-h-a/rag/embedder"
	vectorindex "github.com/w-h-a/rag/vector_index"
)

type Option func(*Options)

type Options struct {
	DocumentStore document.Store
	VectorIndex   vectorindex.Index
	Embedder      embedder.Embedder
	BatchSize     int
	Concurrency   int
	Context       context.Context
}

func WithDocumentStore(s document.Store) Option {
	return func(o *Options) {
		o.DocumentStore = s
	}
}

func WithVectorIndex(i vectorindex.Index) Option {
	return func(o *Options) {
		o.VectorIndex = i
	}
}

// WithEmbedder enables embedding document content on import.
func WithEmbedder(e embedder.Embedder) Option {
	return func(o *Options) {
		o.Embedder = e
	}
}

func WithBatchSize(n int) Option {
	return func(o *Options) {
		o.BatchSize = n
	}
}

func WithConcurrency(n int) Option {
	return func(o *Options) {
		o.Concurrency = n
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		BatchSize:   100,
		Concurrency: 4,
		Context:     context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.BatchSize < 1 {
		options.BatchSize = 1
	}
	if options.Concurrency < 1 {
		options.Concurrency = 1
	}
	return options
}
