package memory

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/analysis/token/lowercase"
	"github.com/blevesearch/bleve/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/mapping"
	"github.com/blevesearch/bleve/search/query"
	"github.com/w-h-a/rag/document"
)

const (
	analyzerName = "rag_keyword"
	contentField = "content"
)

type memoryStore struct {
	options document.Options
	index   bleve.Index
	docs    map[string]document.Document
	mtx     sync.RWMutex
}

func (s *memoryStore) FindByKeywords(ctx context.Context, tokens []string, limit int) ([]document.Document, error) {
	if len(tokens) == 0 || limit < 1 {
		return nil, nil
	}

	disjuncts := make([]query.Query, 0, len(tokens))
	for _, token := range tokens {
		// substring semantics, like content LIKE %token%
		q := bleve.NewWildcardQuery("*" + strings.ToLower(token) + "*")
		q.SetField(contentField)
		disjuncts = append(disjuncts, q)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(disjuncts...), limit, 0, false)

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	docs := make([]document.Document, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if doc, ok := s.docs[hit.ID]; ok {
			docs = append(docs, clone(doc))
		}
	}

	return docs, nil
}

func (s *memoryStore) FindById(ctx context.Context, id string) (document.Document, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return document.Document{}, document.ErrNotFound
	}

	return clone(doc), nil
}

func (s *memoryStore) Upsert(ctx context.Context, doc document.Document) error {
	if len(strings.TrimSpace(doc.Id)) == 0 {
		return errors.New("document id is required")
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.index.Index(doc.Id, map[string]any{contentField: doc.Content}); err != nil {
		return err
	}

	s.docs[doc.Id] = clone(doc)

	return nil
}

func clone(doc document.Document) document.Document {
	cpy := doc
	cpy.Metadata = make(map[string]any, len(doc.Metadata))
	maps.Copy(cpy.Metadata, doc.Metadata)
	return cpy
}

func newIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	err := im.AddCustomAnalyzer(analyzerName, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}

	im.DefaultAnalyzer = analyzerName

	return im, nil
}

func NewStore(opts ...document.Option) document.Store {
	options := document.NewOptions(opts...)

	im, err := newIndexMapping()
	if err != nil {
		detail := "failed to build index mapping for memory document store"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		detail := "failed to open bleve index for memory document store"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	return &memoryStore{
		options: options,
		index:   index,
		docs:    map[string]document.Document{},
		mtx:     sync.RWMutex{},
	}
}
