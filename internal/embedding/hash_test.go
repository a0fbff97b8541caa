package embedding

import (
	"context"
	"math"
	"testing"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(8)
	ctx := context.Background()
	a, err := e.Embed(ctx, "physical ai")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(ctx, "physical ai")
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text should embed identically")
		}
	}
	c, _ := e.Embed(ctx, "something else")
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts should embed differently")
	}
}

func TestHashEmbedder_UnitNorm(t *testing.T) {
	e := NewHashEmbedder(16)
	vec, _ := e.Embed(context.Background(), "robotics")
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-5 {
		t.Errorf("norm = %f, want 1.0", math.Sqrt(sum))
	}
}

func TestHashEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewHashEmbedder(4)
	vec, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vec {
		if v != 0 {
			t.Errorf("vec[%d] = %f, want 0", i, v)
		}
	}
}

func TestHashEmbedder_BatchPreservesOrder(t *testing.T) {
	e := NewHashEmbedder(8)
	ctx := context.Background()
	texts := []string{"one", "two", "three"}
	batch, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 3 {
		t.Fatalf("len = %d", len(batch))
	}
	for i, text := range texts {
		single, _ := e.Embed(ctx, text)
		for j := range single {
			if batch[i][j] != single[j] {
				t.Fatalf("batch[%d] differs from single embed of %q", i, text)
			}
		}
	}
}

func TestHashEmbedder_DefaultDimensions(t *testing.T) {
	e := NewHashEmbedder(0)
	if e.Dimensions() != 384 {
		t.Errorf("Dimensions = %d, want 384", e.Dimensions())
	}
}
