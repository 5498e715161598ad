package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemory_SeenWithinRetention(t *testing.T) {
	c := NewMemory(time.Hour, 100)
	ctx := context.Background()

	seen, err := c.Seen(ctx, "an-1")
	if err != nil || seen {
		t.Fatalf("first Seen() = %v, %v, want false, nil", seen, err)
	}
	seen, err = c.Seen(ctx, "an-1")
	if err != nil || !seen {
		t.Fatalf("second Seen() = %v, %v, want true, nil", seen, err)
	}
	if seen, _ := c.Seen(ctx, "an-2"); seen {
		t.Error("different key reported as seen")
	}
}

func TestMemory_EntryExpires(t *testing.T) {
	c := NewMemory(time.Hour, 100)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Seen(ctx, "an-1")

	// Still inside the window.
	now = now.Add(59 * time.Minute)
	if seen, _ := c.Seen(ctx, "an-1"); !seen {
		t.Error("key expired before retention elapsed")
	}

	// Past the window the key alerts again.
	now = now.Add(2 * time.Hour)
	if seen, _ := c.Seen(ctx, "an-1"); seen {
		t.Error("key still suppressed after retention elapsed")
	}
}

func TestMemory_BoundedEviction(t *testing.T) {
	c := NewMemory(time.Hour, 3)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		c.Seen(ctx, fmt.Sprintf("key-%d", i))
	}

	if n := c.Len(); n > 3 {
		t.Errorf("Len() = %d, want at most 3", n)
	}
	// The most recent key survives eviction.
	if seen, _ := c.Seen(ctx, "key-9"); !seen {
		t.Error("newest key was evicted")
	}
	// The oldest was evicted and reads as unseen.
	if seen, _ := c.Seen(ctx, "key-0"); seen {
		t.Error("oldest key survived past the bound")
	}
}

func TestMemory_EvictionPrefersExpired(t *testing.T) {
	c := NewMemory(time.Hour, 2)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Seen(ctx, "old")
	now = now.Add(2 * time.Hour)
	c.Seen(ctx, "fresh")
	c.Seen(ctx, "newer")

	// The expired entry was dropped; both live ones are retained.
	if seen, _ := c.Seen(ctx, "fresh"); !seen {
		t.Error("live entry evicted while an expired one existed")
	}
	if seen, _ := c.Seen(ctx, "newer"); !seen {
		t.Error("live entry evicted while an expired one existed")
	}
}
