package document

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("document not found")

// Store is the read/write surface over the document corpus.
// FindByKeywords matches documents whose content contains any of the tokens.
type Store interface {
	FindByKeywords(ctx context.Context, tokens []string, limit int) ([]Document, error)
	FindById(ctx context.Context, id string) (Document, error)
	Upsert(ctx context.Context, doc Document) error
}
