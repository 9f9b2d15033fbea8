package cache

import (
	"testing"
	"time"
)

func TestCache_HitAndExpiry(t *testing.T) {
	c := New(time.Minute)
	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Set("k", 42)
	v, ok := c.Get("k")
	if !ok || v.(int) != 42 {
		t.Fatalf("expected hit with 42, got %v (ok=%v)", v, ok)
	}

	clock = clock.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry evicted on read, len=%d", c.Len())
	}
}

func TestCache_DisabledTTL(t *testing.T) {
	c := New(0)
	c.Set("k", 1)
	if _, ok := c.Get("k"); ok {
		t.Error("expected disabled cache to never hit")
	}
	if c.Len() != 0 {
		t.Errorf("expected no stored entries, len=%d", c.Len())
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be invalidated")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to survive")
	}

	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, len=%d", c.Len())
	}
}
