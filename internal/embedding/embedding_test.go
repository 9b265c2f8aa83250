package embedding

import (
	"math"
	"testing"
)

func TestCosineSimilarity_Identical(t *testing.T) {
	v := Vector{0.5, 0.5, 0.5}
	got := CosineSimilarity(v, v)
	if math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected 1.0, got %f", got)
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	got := CosineSimilarity(Vector{1, 0}, Vector{0, 1})
	if math.Abs(got) > 1e-9 {
		t.Fatalf("expected 0, got %f", got)
	}
}

func TestCosineSimilarity_Opposite(t *testing.T) {
	got := CosineSimilarity(Vector{1, 0}, Vector{-1, 0})
	if math.Abs(got+1.0) > 1e-9 {
		t.Fatalf("expected -1.0, got %f", got)
	}
}

func TestCosineSimilarity_MismatchedLength(t *testing.T) {
	if got := CosineSimilarity(Vector{1, 0}, Vector{1, 0, 0}); got != 0 {
		t.Fatalf("expected 0 for mismatched lengths, got %f", got)
	}
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	if got := CosineSimilarity(Vector{0, 0}, Vector{1, 1}); got != 0 {
		t.Fatalf("expected 0 for zero vector, got %f", got)
	}
}
