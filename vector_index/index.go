package vectorindex

import "context"

// Index answers k-nearest-neighbor queries over fixed-dimension embeddings.
// Query returns matches best-first.
type Index interface {
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error
}
