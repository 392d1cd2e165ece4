package providers

import (
	"fmt"

	"github.com/w-h-a/rag/document"
	memorydocument "github.com/w-h-a/rag/document/memory"
	postgresdocument "github.com/w-h-a/rag/document/postgres"
	"github.com/w-h-a/rag/embedder"
	googleembedder "github.com/w-h-a/rag/embedder/google"
	openaiembedder "github.com/w-h-a/rag/embedder/openai"
	"github.com/w-h-a/rag/generator"
	anthropicgenerator "github.com/w-h-a/rag/generator/anthropic"
	googlegenerator "github.com/w-h-a/rag/generator/google"
	openaigenerator "github.com/w-h-a/rag/generator/openai"
	"github.com/w-h-a/rag/memory_manager/providers/kv"
	memorykv "github.com/w-h-a/rag/memory_manager/providers/kv/memory"
	rediskv "github.com/w-h-a/rag/memory_manager/providers/kv/redis"
	vectorindex "github.com/w-h-a/rag/vector_index"
	memoryindex "github.com/w-h-a/rag/vector_index/memory"
	postgresindex "github.com/w-h-a/rag/vector_index/postgres"
	qdrantindex "github.com/w-h-a/rag/vector_index/qdrant"
)

// Provider names accepted on the command line.
const (
	Postgres  = "postgres"
	Memory    = "memory"
	Qdrant    = "qdrant"
	Redis     = "redis"
	OpenAI    = "openai"
	Google    = "google"
	Anthropic = "anthropic"
	None      = "none"
)

func DocumentStore(name string, opts ...document.Option) (document.Store, error) {
	switch name {
	case Postgres:
		return postgresdocument.NewStore(opts...), nil
	case Memory:
		return memorydocument.NewStore(opts...), nil
	}
	return nil, fmt.Errorf("unknown document store %q", name)
}

// VectorIndex returns nil for "none", which disables dense retrieval.
func VectorIndex(name string, opts ...vectorindex.Option) (vectorindex.Index, error) {
	switch name {
	case Postgres:
		return postgresindex.NewIndex(opts...), nil
	case Qdrant:
		return qdrantindex.NewIndex(opts...), nil
	case Memory:
		return memoryindex.NewIndex(opts...), nil
	case None:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown vector index %q", name)
}

func KV(name string, opts ...kv.Option) (kv.KV, error) {
	switch name {
	case Redis:
		return rediskv.NewKV(opts...), nil
	case Memory:
		return memorykv.NewKV(opts...), nil
	case None:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown kv store %q", name)
}

func Embedder(name string, opts ...embedder.Option) (embedder.Embedder, error) {
	switch name {
	case OpenAI:
		return openaiembedder.NewEmbedder(opts...), nil
	case Google:
		return googleembedder.NewEmbedder(opts...), nil
	case None:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown embedder %q", name)
}

// Generator returns nil for "none"; queries then fail as upstream unavailable.
func Generator(name string, opts ...generator.Option) (generator.Generator, error) {
	switch name {
	case OpenAI:
		return openaigenerator.NewGenerator(opts...), nil
	case Anthropic:
		return anthropicgenerator.NewGenerator(opts...), nil
	case Google:
		return googlegenerator.NewGenerator(opts...), nil
	case None:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown generator %q", name)
}
