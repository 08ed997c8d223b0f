package cache

import (
	"testing"
	"time"
)

func TestGetPut(t *testing.T) {
	c := NewTTLCache[int](4, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put("a", 1)
	got, ok := c.Get("a")
	if !ok || got != 1 {
		t.Fatalf("Get(a) = %d, %v; want 1, true", got, ok)
	}

	c.Put("a", 2)
	got, _ = c.Get("a")
	if got != 2 {
		t.Fatalf("Get(a) after overwrite = %d; want 2", got)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", c.Len())
	}
}

func TestExpiry(t *testing.T) {
	c := NewTTLCache[string](4, time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c.SetClock(func() time.Time { return now })

	c.Put("a", "fresh")

	now = base.Add(59 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired before its TTL")
	}

	now = base.Add(61 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry survived past its TTL")
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d after expired read; want 0", c.Len())
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewTTLCache[int](2, time.Minute)
	c.Put("a", 1)
	c.Put("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	c.Get("a")
	c.Put("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	for _, key := range []string{"a", "c"} {
		if _, ok := c.Get(key); !ok {
			t.Fatalf("expected %s to survive eviction", key)
		}
	}
}

func TestInvalidate(t *testing.T) {
	c := NewTTLCache[int](4, time.Minute)
	c.Put("a", 1)
	c.Invalidate("a")
	c.Invalidate("missing")

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after invalidation")
	}
}
