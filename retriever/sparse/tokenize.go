package sparse

import (
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`\W+`)

var stopwords = map[string]struct{}{
	"the": {}, "is": {}, "are": {}, "and": {}, "or": {}, "not": {}, "a": {}, "an": {},
	"of": {}, "to": {}, "in": {}, "on": {}, "for": {}, "with": {},
	"what": {}, "which": {}, "who": {}, "where": {}, "when": {}, "how": {}, "why": {},
}

// Tokenize lowercases the query and keeps word tokens longer than two
// characters that are not stopwords. Duplicates are kept.
func Tokenize(query string) []string {
	var tokens []string

	for _, term := range nonWord.Split(strings.ToLower(query), -1) {
		if len(term) <= 2 {
			continue
		}
		if _, stop := stopwords[term]; stop {
			continue
		}
		tokens = append(tokens, term)
	}

	return tokens
}
