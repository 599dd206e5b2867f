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
	c.Get("a")               // a is now most recent
	c.Set("c", []float32{6}) // evicts b
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	hits, misses := c.Stats()
	if hits != 3 || misses != 2 {
		t.Errorf("Stats() = %d hits, %d misses", hits, misses)
	}
}

func TestCache_CopiesValues(t *testing.T) {
	c := NewCache(1)
	in := []float32{1, 2}
	c.Set("k", in)
	in[0] = 99
	out, _ := c.Get("k")
	if out[0] != 1 {
		t.Error("cache aliased the stored slice")
	}
	out[1] = 99
	again, _ := c.Get("k")
	if again[1] != 2 {
		t.Error("cache aliased the returned slice")
	}
}

func TestCache_Disabled(t *testing.T) {
	c := NewCache(0)
	c.Set("k", []float32{1})
	if _, ok := c.Get("k"); ok {
		t.Error("zero-capacity cache should not store")
	}
}

func TestMediaKey(t *testing.T) {
	if MediaKey([]byte("a")) == MediaKey([]byte("b")) {
		t.Error("different media share a key")
	}
	if len(MediaKey(nil)) != 64 {
		t.Error("expected hex sha256")
	}
}
