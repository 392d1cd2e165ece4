package retriever

import (
	"context"

	"github.com/w-h-a/rag/document"
	"github.com/w-h-a/rag/embedder"
	vectorindex "github.com/w-h-a/rag/vector_index"
)

type Option func(*Options)

type Options struct {
	DocumentStore  document.Store
	VectorIndex    vectorindex.Index
	Embedder       embedder.Embedder
	TopK           int
	CandidateLimit int
	Dimension      int
	Context        context.Context
}

func WithDocumentStore(store document.Store) Option {
	return func(o *Options) {
		o.DocumentStore = store
	}
}

func WithVectorIndex(index vectorindex.Index) Option {
	return func(o *Options) {
		o.VectorIndex = index
	}
}

func WithEmbedder(e embedder.Embedder) Option {
	return func(o *Options) {
		o.Embedder = e
	}
}

func WithTopK(k int) Option {
	return func(o *Options) {
		o.TopK = k
	}
}

// WithCandidateLimit bounds how many rows a keyword query may pull before scoring.
func WithCandidateLimit(limit int) Option {
	return func(o *Options) {
		o.CandidateLimit = limit
	}
}

func WithDimension(dim int) Option {
	return func(o *Options) {
		o.Dimension = dim
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		TopK:           8,
		CandidateLimit: 50,
		Dimension:      1536,
		Context:        context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
