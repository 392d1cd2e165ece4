package rag

import (
	"context"
	"net/http"

	"github.com/w-h-a/rag/document"
	"github.com/w-h-a/rag/embedder"
	"github.com/w-h-a/rag/generator"
	"github.com/w-h-a/rag/internal/service/pipeline"
	memorymanager "github.com/w-h-a/rag/memory_manager"
	"github.com/w-h-a/rag/memory_manager/conversation"
	"github.com/w-h-a/rag/memory_manager/providers/kv"
	"github.com/w-h-a/rag/prompt"
	"github.com/w-h-a/rag/retriever"
	"github.com/w-h-a/rag/retriever/dense"
	"github.com/w-h-a/rag/retriever/sparse"
	httpserver "github.com/w-h-a/rag/server/http"
	vectorindex "github.com/w-h-a/rag/vector_index"
)

type Answer struct {
	Text      string
	Sources   []prompt.SourceSummary
	SessionId string
}

type RAG struct {
	pipeline *pipeline.Service
}

func (r *RAG) Query(ctx context.Context, query string, sessionId string) (Answer, error) {
	rsp, err := r.pipeline.Query(ctx, pipeline.Request{Query: query, SessionId: sessionId})
	if err != nil {
		return Answer{}, err
	}

	return Answer{
		Text:      rsp.Answer,
		Sources:   rsp.Sources,
		SessionId: rsp.SessionId,
	}, nil
}

// Handler serves the query API over HTTP.
func (r *RAG) Handler() http.Handler {
	return httpserver.NewRouter(r.pipeline)
}

// Wait blocks until pending conversation writes finish.
func (r *RAG) Wait() {
	r.pipeline.Wait()
}

func (r *RAG) Close() error {
	r.Wait()
	return nil
}

// New wires the pipeline. The vector index and embedder are optional and
// dense retrieval is skipped without them. Query embeddings must have
// dimension entries; zero keeps the 1536 default. A nil kv store makes every query
// stateless. A nil generator makes every query fail as upstream unavailable.
func New(
	store document.Store,
	index vectorindex.Index,
	emb embedder.Embedder,
	dimension int,
	gen generator.Generator,
	history kv.KV,
	denseWeight float64,
	sparseWeight float64,
) *RAG {
	opts := []pipeline.Option{
		pipeline.WithWeights(denseWeight, sparseWeight),
		pipeline.WithSparseRetriever(sparse.NewRetriever(
			retriever.WithDocumentStore(store),
		)),
	}

	if index != nil && emb != nil {
		denseOpts := []retriever.Option{
			retriever.WithDocumentStore(store),
			retriever.WithVectorIndex(index),
			retriever.WithEmbedder(emb),
		}
		if dimension > 0 {
			denseOpts = append(denseOpts, retriever.WithDimension(dimension))
		}
		opts = append(opts, pipeline.WithDenseRetriever(dense.NewRetriever(denseOpts...)))
	}

	if gen != nil {
		opts = append(opts, pipeline.WithGenerator(gen))
	}

	if history != nil {
		opts = append(opts, pipeline.WithMemory(conversation.NewMemoryManager(
			memorymanager.WithKV(history),
		)))
	}

	return &RAG{
		pipeline: pipeline.New(opts...),
	}
}
