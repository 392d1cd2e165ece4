package memory

import (
	"context"
	"testing"
	"time"
)

func TestPutGetExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	store := NewKV().(*memoryKV)
	store.now = func() time.Time { return now }

	ctx := context.Background()

	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("expected miss on empty store")
	}

	store.Put(ctx, "k", "v", time.Hour)

	if val, ok, _ := store.Get(ctx, "k"); !ok || val != "v" {
		t.Fatalf("expected hit, got %q %v", val, ok)
	}

	now = now.Add(59 * time.Minute)
	store.Put(ctx, "k", "v2", time.Hour)

	now = now.Add(30 * time.Minute)
	if val, ok, _ := store.Get(ctx, "k"); !ok || val != "v2" {
		t.Fatalf("expected refreshed ttl to keep key alive, got %q %v", val, ok)
	}

	now = now.Add(31 * time.Minute)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("expected key to expire")
	}
}
