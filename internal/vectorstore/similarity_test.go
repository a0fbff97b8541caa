package vectorstore

import (
	"math"
	"testing"
)

func TestCosine_SelfSimilarity(t *testing.T) {
	v := []float32{0.3, -0.5, 0.8}
	if sim := Cosine(v, v); math.Abs(sim-1.0) > 1e-9 {
		t.Errorf("self similarity = %f, want 1.0", sim)
	}
}

func TestCosine_Orthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if sim := Cosine(a, b); sim != 0 {
		t.Errorf("orthogonal similarity = %f, want 0", sim)
	}
}

func TestCosine_Opposite(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-1, -2, -3}
	if sim := Cosine(a, b); math.Abs(sim+1.0) > 1e-9 {
		t.Errorf("opposite similarity = %f, want -1.0", sim)
	}
}

func TestCosine_ZeroVector(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 2, 3}
	if sim := Cosine(a, b); sim != 0 {
		t.Errorf("zero-vector similarity = %f, want 0", sim)
	}
	if sim := Cosine(a, a); sim != 0 {
		t.Errorf("zero-zero similarity = %f, want 0", sim)
	}
}

func TestCosine_LengthMismatch(t *testing.T) {
	if sim := Cosine([]float32{1, 2}, []float32{1, 2, 3}); sim != 0 {
		t.Errorf("mismatched lengths = %f, want 0", sim)
	}
	if sim := Cosine(nil, nil); sim != 0 {
		t.Errorf("nil vectors = %f, want 0", sim)
	}
}

func TestCosine_Clamped(t *testing.T) {
	// Scaled copies of the same vector can drift past 1.0 in floating point.
	a := []float32{1e-8, 1e-8, 1e-8}
	b := []float32{1e8, 1e8, 1e8}
	sim := Cosine(a, b)
	if sim < -1 || sim > 1 {
		t.Errorf("similarity %f outside [-1, 1]", sim)
	}
}
