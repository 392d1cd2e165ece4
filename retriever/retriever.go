package retriever

import (
	"context"
	"errors"

	"github.com/w-h-a/rag/document"
)

// ErrDegraded marks a retrieval that failed and was replaced by an empty
// result. Callers keep going with whatever the other retrievers returned.
var ErrDegraded = errors.New("retrieval degraded")

// Retriever returns documents relevant to a free-text query, best first.
// On failure it returns an empty slice together with an error wrapping
// ErrDegraded.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]document.Document, error)
}
