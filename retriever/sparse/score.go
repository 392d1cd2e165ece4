package sparse

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	k1 = 1.2
	b  = 0.75
)

// Score is a BM25-shaped relevance score. The idf factor is log(1+tf) of the
// document's own term frequency rather than a corpus statistic, and
// avgDocLen comes from the candidate batch, so scores are only comparable
// within one batch.
func Score(content string, terms []string, avgDocLen float64) float64 {
	lowered := strings.ToLower(content)
	docLen := float64(utf8.RuneCountInString(content))

	norm := 1.0
	if avgDocLen > 0 {
		norm = docLen / avgDocLen
	}

	score := 0.0

	for _, term := range terms {
		tf := float64(strings.Count(lowered, strings.ToLower(term)))
		if tf == 0 {
			continue
		}

		idf := math.Log(1 + tf)

		score += idf * tf * (k1 + 1) / (tf + k1*(1-b+b*norm))
	}

	return score
}

func AverageLength(contents []string) float64 {
	if len(contents) == 0 {
		return 0
	}

	total := 0
	for _, c := range contents {
		total += utf8.RuneCountInString(c)
	}

	return float64(total) / float64(len(contents))
}
