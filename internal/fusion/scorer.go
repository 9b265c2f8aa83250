// Package fusion implements the candidate matching, decision tracking, and
// checklist merge algorithms.
package fusion

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/checkfuse/checkfuse/internal/embedding"
	"github.com/checkfuse/checkfuse/internal/model"
)

const (
	// Additive boost when the two items cite at least one common reference.
	referenceBoost = 0.15
	// Additive boost when the two items share a category.
	categoryBoost = 0.10
)

// ErrVectorLength signals an embedding dimensionality mismatch, which is a
// precondition violation rather than a scoring outcome.
var ErrVectorLength = errors.New("embedding vectors must have the same length")

// Score computes the match score between two checklist items: cosine
// similarity of their embeddings plus reference and category boosts, each
// clamped so the result stays in [0,1].
func Score(a, b model.ChecklistItem, va, vb embedding.Vector) (float64, error) {
	if len(va) != len(vb) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrVectorLength, len(va), len(vb))
	}

	score := embedding.CosineSimilarity(va, vb)
	if score < 0 {
		score = 0
	}
	if hasMatchingReferences(a, b) {
		score = math.Min(1.0, score+referenceBoost)
	}
	if sameCategory(a, b) {
		score = math.Min(1.0, score+categoryBoost)
	}
	return score, nil
}

// hasMatchingReferences reports whether the two items' reference sets
// intersect, compared case-insensitively.
func hasMatchingReferences(a, b model.ChecklistItem) bool {
	if len(a.References) == 0 || len(b.References) == 0 {
		return false
	}
	refs := make(map[string]bool, len(a.References))
	for _, r := range a.References {
		refs[strings.ToLower(r)] = true
	}
	for _, r := range b.References {
		if refs[strings.ToLower(r)] {
			return true
		}
	}
	return false
}

func sameCategory(a, b model.ChecklistItem) bool {
	return strings.EqualFold(a.Category, b.Category)
}
