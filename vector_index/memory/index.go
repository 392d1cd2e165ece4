package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	vectorindex "github.com/w-h-a/rag/vector_index"
)

type entry struct {
	vector   []float32
	metadata map[string]any
}

type memoryIndex struct {
	options vectorindex.Options
	entries map[string]entry
	mtx     sync.RWMutex
}

func (m *memoryIndex) Query(ctx context.Context, vector []float32, topK int) ([]vectorindex.Match, error) {
	if topK < 1 {
		return nil, nil
	}

	m.mtx.RLock()
	defer m.mtx.RUnlock()

	matches := make([]vectorindex.Match, 0, len(m.entries))

	for id, e := range m.entries {
		meta := make(map[string]any, len(e.metadata))
		maps.Copy(meta, e.metadata)

		matches = append(matches, vectorindex.Match{
			Id:       id,
			Score:    float32(vectorindex.CosineSimilarity(vector, e.vector)),
			Metadata: meta,
		})
	}

	// ties break on id so results do not depend on map order
	slices.SortFunc(matches, func(a, b vectorindex.Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		if a.Id < b.Id {
			return -1
		}
		if a.Id > b.Id {
			return 1
		}
		return 0
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	return matches, nil
}

func (m *memoryIndex) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any) error {
	if len(id) == 0 {
		return errors.New("vector id is required")
	}

	if m.options.VectorSize > 0 && len(vector) != m.options.VectorSize {
		return fmt.Errorf("vector has %d dimensions, index expects %d", len(vector), m.options.VectorSize)
	}

	meta := make(map[string]any, len(metadata))
	maps.Copy(meta, metadata)

	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.entries[id] = entry{
		vector:   slices.Clone(vector),
		metadata: meta,
	}

	return nil
}

func NewIndex(opts ...vectorindex.Option) vectorindex.Index {
	options := vectorindex.NewOptions(opts...)

	return &memoryIndex{
		options: options,
		entries: map[string]entry{},
		mtx:     sync.RWMutex{},
	}
}
