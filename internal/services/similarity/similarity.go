// Package similarity ranks exemplars against a query embedding by cosine similarity.
package similarity

import (
	"math"
	"sort"

	"github.com/killallgit/speech-coach/internal/models"
)

// DefaultLimit is used when the caller passes a non-positive limit.
const DefaultLimit = 5

// Match is one ranked exemplar.
type Match struct {
	Exemplar models.Exemplar `json:"exemplar"`
	Score    float64         `json:"score"`
}

// CosineSimilarity returns dot(a,b) / (|a| |b|). It is 0 when either vector
// is empty, the lengths differ, or either norm is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type entry struct {
	exemplar models.Exemplar
	vector   []float32
}

// Index is an immutable linear-scan corpus of searchable exemplars.
type Index struct {
	entries []entry
}

// NewIndex keeps only completed exemplars whose embedding decodes to a
// non-empty vector, preserving input order.
func NewIndex(exemplars []models.Exemplar) *Index {
	ix := &Index{entries: make([]entry, 0, len(exemplars))}
	for _, ex := range exemplars {
		if !ex.Searchable() {
			continue
		}
		vec, err := ex.EmbeddingVector()
		if err != nil || len(vec) == 0 {
			continue
		}
		ix.entries = append(ix.entries, entry{exemplar: ex, vector: vec})
	}
	return ix
}

// Len is the number of searchable exemplars.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// FindSimilar scores every entry and returns at most limit matches by
// descending score. Equal scores keep corpus order.
func (ix *Index) FindSimilar(query []float32, limit int) []Match {
	if limit <= 0 {
		limit = DefaultLimit
	}

	matches := make([]Match, 0, len(ix.entries))
	for _, e := range ix.entries {
		matches = append(matches, Match{
			Exemplar: e.exemplar,
			Score:    CosineSimilarity(query, e.vector),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// FindSimilar ranks corpus against query in one call.
func FindSimilar(query []float32, corpus []models.Exemplar, limit int) []Match {
	return NewIndex(corpus).FindSimilar(query, limit)
}
