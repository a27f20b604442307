package vectorstore

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/erkion1127/ds-ai2/internal/entity"
)

// CosineSimilarity returns 0 when either vector has zero norm or the lengths differ
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// VectorScore maps cosine similarity onto the non-negative score scale
func VectorScore(similarity float64) float64 {
	return similarity + 1.0
}

// Terms lowercases text and splits it on anything that is not a letter or digit
func Terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// QueryTerms returns the distinct terms of text in sorted order
func QueryTerms(text string) []string {
	terms := Terms(text)
	slices.Sort(terms)
	return slices.Compact(terms)
}

// LexicalScore is the fraction of distinct query terms present in text, in [0, 1].
// queryTerms must be distinct, as returned by QueryTerms.
func LexicalScore(queryTerms []string, text string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}

	present := make(map[string]struct{})
	for _, t := range Terms(text) {
		present[t] = struct{}{}
	}

	hits := 0
	for _, t := range queryTerms {
		if _, ok := present[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTerms))
}

// MatchFilters reports whether the chunk satisfies every metadata predicate
func MatchFilters(chunk entity.Chunk, filters Filters) bool {
	for key, want := range filters {
		var got any
		if key == entity.MetaDocumentID {
			got = chunk.DocumentID
		} else {
			v, ok := chunk.Metadata[key]
			if !ok {
				return false
			}
			got = v
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
