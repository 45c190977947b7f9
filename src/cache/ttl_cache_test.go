package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestCacheGetSet(t *testing.T) {
	c := NewLRUCache(4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("empty cache should miss")
	}

	c.Set("lincoln, ne", "value")
	got, ok := c.Get("lincoln, ne")
	if !ok || got != "value" {
		t.Fatalf("expected hit, got (%v, %v)", got, ok)
	}

	c.Set("lincoln, ne", "updated")
	if got, _ := c.Get("lincoln, ne"); got != "updated" {
		t.Fatalf("overwrite lost: %v", got)
	}
	if c.Len() != 1 {
		t.Fatalf("overwrite must not grow the cache: %d", c.Len())
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache(3, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	// Touch k0 so k1 becomes the eviction candidate.
	c.Get("k0")
	c.Set("k3", 3)

	if _, ok := c.Get("k1"); ok {
		t.Fatal("k1 should have been evicted")
	}
	for _, key := range []string{"k0", "k2", "k3"} {
		if _, ok := c.Get(key); !ok {
			t.Fatalf("%s should have survived", key)
		}
	}
}

func TestCacheExpiresEntries(t *testing.T) {
	c := NewLRUCache(4, 20*time.Millisecond)
	c.Set("k", "v")

	if _, ok := c.Get("k"); !ok {
		t.Fatal("fresh entry should hit")
	}
	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry should miss")
	}
}

func TestKeyNormalization(t *testing.T) {
	cases := []struct {
		raw, want string
	}{
		{"Lincoln, NE", "lincoln, ne"},
		{"  lincoln,   ne  ", "lincoln, ne"},
		{"NEW\tYORK", "new york"},
	}
	for _, tc := range cases {
		if got := Key(tc.raw); got != tc.want {
			t.Errorf("Key(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
