package embedding

import (
	"testing"
)

func TestCache_GetSet(t *testing.T) {
	c := NewCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestCache_SetExisting(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("a", []float32{2})
	v, ok := c.Get("a")
	if !ok || v[0] != 2 {
		t.Errorf("expected updated value, got %v", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}
