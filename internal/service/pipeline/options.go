package pipeline

import (
	"context"
	"time"

	"github.com/w-h-a/rag/generator"
	memorymanager "github.com/w-h-a/rag/memory_manager"
	"github.com/w-h-a/rag/ranker"
	"github.com/w-h-a/rag/retriever"
)

type Option func(*Options)

type Options struct {
	Dense        retriever.Retriever
	Sparse       retriever.Retriever
	DenseWeight  float64
	SparseWeight float64
	Memory       memorymanager.MemoryManager
	Generator    generator.Generator
	PersistHook  func(sessionId string, err error)
	Now          func() time.Time
	Context      context.Context
}

func WithDenseRetriever(r retriever.Retriever) Option {
	return func(o *Options) {
		o.Dense = r
	}
}

func WithSparseRetriever(r retriever.Retriever) Option {
	return func(o *Options) {
		o.Sparse = r
	}
}

func WithWeights(dense, sparse float64) Option {
	return func(o *Options) {
		o.DenseWeight = dense
		o.SparseWeight = sparse
	}
}

func WithMemory(m memorymanager.MemoryManager) Option {
	return func(o *Options) {
		o.Memory = m
	}
}

// WithGenerator binds the inference endpoint. Without one every query fails
// as upstream unavailable.
func WithGenerator(g generator.Generator) Option {
	return func(o *Options) {
		o.Generator = g
	}
}

// WithPersistHook observes the outcome of each detached history write.
func WithPersistHook(hook func(sessionId string, err error)) Option {
	return func(o *Options) {
		o.PersistHook = hook
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		DenseWeight:  ranker.DefaultWeight,
		SparseWeight: ranker.DefaultWeight,
		Now:          time.Now,
		Context:      context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
