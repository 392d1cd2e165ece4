package ranker

import (
	"slices"

	"github.com/w-h-a/rag/document"
)

const (
	DefaultLimit  = 8
	DefaultWeight = 0.5
)

type ScoredDocument struct {
	Document document.Document
	Score    float64
}

// Ranked is one retriever's output, best first, and how much it counts.
type Ranked struct {
	Documents []document.Document
	Weight    float64
}

// Fuse merges ranked lists by weighted rank position. Entry i of a list of
// length n contributes weight*(1 - i/n) to its document id; ids that
// appear in several lists accumulate. Ties keep first-seen order. The
// first occurrence of an id provides the returned document. A negative
// limit keeps every entry.
func Fuse(limit int, lists ...Ranked) []ScoredDocument {
	index := map[string]int{}
	var fused []ScoredDocument

	for _, list := range lists {
		n := float64(len(list.Documents))

		for i, doc := range list.Documents {
			score := (1 - float64(i)/n) * list.Weight

			if pos, ok := index[doc.Id]; ok {
				fused[pos].Score += score
				continue
			}

			index[doc.Id] = len(fused)
			fused = append(fused, ScoredDocument{Document: doc, Score: score})
		}
	}

	slices.SortStableFunc(fused, func(a, b ScoredDocument) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	if limit >= 0 && len(fused) > limit {
		fused = fused[:limit]
	}

	return fused
}

// EnsembleRank fuses dense and sparse results and returns the top eight
// documents with scores dropped.
func EnsembleRank(dense, sparse []document.Document, denseWeight, sparseWeight float64) []document.Document {
	fused := Fuse(DefaultLimit,
		Ranked{Documents: dense, Weight: denseWeight},
		Ranked{Documents: sparse, Weight: sparseWeight},
	)

	docs := make([]document.Document, len(fused))
	for i, s := range fused {
		docs[i] = s.Document
	}

	return docs
}
