package treeow

import (
	"testing"
	"time"

	"github.com/lboswell/treeow-core/internal/attribute"
)

func TestModelCache_HitWithinTTL(t *testing.T) {
	now := time.Now()
	cache := NewModelCache(time.Hour)
	cache.now = func() time.Time { return now }

	attrs := []attribute.RawAttribute{{Identifier: "temperature"}}
	cache.Put("dev-1", "3", attrs)

	// Just inside the TTL.
	now = now.Add(time.Hour - time.Second)
	got, ok := cache.Get("dev-1", "3")
	if !ok {
		t.Fatal("Get() miss, want hit inside TTL")
	}
	if len(got) != 1 || got[0].Identifier != "temperature" {
		t.Errorf("Get() = %v", got)
	}
}

func TestModelCache_ExpiryForcesRefetch(t *testing.T) {
	now := time.Now()
	cache := NewModelCache(time.Hour)
	cache.now = func() time.Time { return now }

	cache.Put("dev-1", "3", nil)

	now = now.Add(time.Hour)
	if _, ok := cache.Get("dev-1", "3"); ok {
		t.Error("Get() hit at exactly TTL, want miss")
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d after expired Get, want 0", cache.Len())
	}
}

func TestModelCache_VersionChangeInvalidates(t *testing.T) {
	cache := NewModelCache(time.Hour)
	cache.Put("dev-1", "3", []attribute.RawAttribute{{Identifier: "x"}})

	// Same entry age, new schema version reported by the device.
	if _, ok := cache.Get("dev-1", "4"); ok {
		t.Error("Get() served a schema for a stale version")
	}
}

func TestModelCache_PurgeExpired(t *testing.T) {
	now := time.Now()
	cache := NewModelCache(time.Hour)
	cache.now = func() time.Time { return now }

	cache.Put("old-1", "1", nil)
	cache.Put("old-2", "1", nil)

	now = now.Add(30 * time.Minute)
	cache.Put("fresh", "1", nil)

	now = now.Add(31 * time.Minute)
	if removed := cache.PurgeExpired(); removed != 2 {
		t.Errorf("PurgeExpired() = %d, want 2", removed)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
	if _, ok := cache.Get("fresh", "1"); !ok {
		t.Error("fresh entry was purged")
	}
}

func TestModelCache_LastWriterWins(t *testing.T) {
	cache := NewModelCache(time.Hour)
	cache.Put("dev-1", "3", []attribute.RawAttribute{{Identifier: "first"}})
	cache.Put("dev-1", "3", []attribute.RawAttribute{{Identifier: "second"}})

	got, ok := cache.Get("dev-1", "3")
	if !ok || len(got) != 1 || got[0].Identifier != "second" {
		t.Errorf("Get() = %v, %v; want the later write", got, ok)
	}
}
