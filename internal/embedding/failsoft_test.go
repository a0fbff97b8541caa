package embedding

import (
	"context"
	"errors"
	"testing"
)

// failingEmbedder always errors, for exercising degradation.
type failingEmbedder struct {
	dimensions int
}

func (e *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("model unavailable")
}

func (e *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("model unavailable")
}

func (e *failingEmbedder) Dimensions() int { return e.dimensions }
func (e *failingEmbedder) Close() error    { return nil }

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestFailSoft_EmptyInput(t *testing.T) {
	f := NewFailSoft(NewHashEmbedder(4), nil)
	vec, err := f.Embed(context.Background(), "   ")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 4 || !isZero(vec) {
		t.Errorf("blank input should yield zero vector, got %v", vec)
	}
}

func TestFailSoft_DegradesOnFailure(t *testing.T) {
	f := NewFailSoft(&failingEmbedder{dimensions: 4}, nil)
	vec, err := f.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatalf("FailSoft.Embed should never error, got %v", err)
	}
	if len(vec) != 4 || !isZero(vec) {
		t.Errorf("failure should yield zero vector, got %v", vec)
	}
}

func TestFailSoft_EmbedTextsStatuses(t *testing.T) {
	f := NewFailSoft(NewHashEmbedder(4), nil)
	texts := []string{"hello", "", "world"}
	vectors, statuses := f.EmbedTexts(context.Background(), texts)
	if len(vectors) != 3 || len(statuses) != 3 {
		t.Fatalf("lengths: %d vectors, %d statuses", len(vectors), len(statuses))
	}
	if statuses[0] != StatusOK || statuses[2] != StatusOK {
		t.Errorf("non-empty inputs should be StatusOK, got %v", statuses)
	}
	if statuses[1] != StatusEmptyInput {
		t.Errorf("empty input should be StatusEmptyInput, got %v", statuses[1])
	}
	if !isZero(vectors[1]) {
		t.Error("empty input should get zero vector")
	}
	if isZero(vectors[0]) || isZero(vectors[2]) {
		t.Error("non-empty inputs should get real vectors")
	}
}

func TestFailSoft_EmbedTextsAllDegradeOnBatchFailure(t *testing.T) {
	f := NewFailSoft(&failingEmbedder{dimensions: 4}, nil)
	vectors, statuses := f.EmbedTexts(context.Background(), []string{"a", "", "b"})
	if statuses[0] != StatusDegraded || statuses[2] != StatusDegraded {
		t.Errorf("failed inputs should be StatusDegraded, got %v", statuses)
	}
	if statuses[1] != StatusEmptyInput {
		t.Errorf("empty input stays StatusEmptyInput, got %v", statuses[1])
	}
	for i, vec := range vectors {
		if len(vec) != 4 || !isZero(vec) {
			t.Errorf("vector %d should be zero, got %v", i, vec)
		}
	}
}
