package device

import (
	"errors"
	"sync"
	"testing"

	"github.com/lboswell/treeow-core/internal/attribute"
)

func TestRegistry_AddAndGet(t *testing.T) {
	r := NewRegistry()
	d := New(Info{ID: "dev-1", Name: "Purifier"})

	if err := r.Add(d); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := r.Get("dev-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != d {
		t.Error("Get() returned a different device")
	}

	if err := r.Add(New(Info{ID: "dev-1"})); !errors.Is(err, ErrExists) {
		t.Errorf("Add() duplicate error = %v, want ErrExists", err)
	}

	if _, err := r.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() missing error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_ListPreservesOrder(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		if err := r.Add(New(Info{ID: id})); err != nil {
			t.Fatalf("Add(%s) error = %v", id, err)
		}
	}

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("List() len = %d, want 3", len(list))
	}
	for i, want := range []string{"c", "a", "b"} {
		if list[i].ID != want {
			t.Errorf("List()[%d] = %s, want %s", i, list[i].ID, want)
		}
	}

	if r.Count() != 3 {
		t.Errorf("Count() = %d, want 3", r.Count())
	}
}

func TestDevice_NameFallsBackToID(t *testing.T) {
	d := New(Info{ID: "dev-1"})
	if d.Name != "dev-1" {
		t.Errorf("Name = %q, want ID fallback", d.Name)
	}
}

func TestDevice_ProductID(t *testing.T) {
	tests := []struct {
		serial string
		want   string
	}{
		{"PROD123:0001", "PROD123"},
		{"no-colon", ""},
		{"", ""},
	}

	for _, tt := range tests {
		d := New(Info{ID: "x", Serial: tt.serial})
		if got := d.ProductID(); got != tt.want {
			t.Errorf("ProductID(%q) = %q, want %q", tt.serial, got, tt.want)
		}
	}
}

func TestDevice_Capabilities(t *testing.T) {
	d := New(Info{ID: "dev-1"})

	caps := []*attribute.Capability{
		{Key: "power", Kind: attribute.KindSwitch},
		{Key: "mode", Kind: attribute.KindSelect},
	}
	d.SetCapabilities(caps)

	if !d.HasCapability("power") || d.HasCapability("missing") {
		t.Error("HasCapability() gave wrong answers")
	}

	c, ok := d.Capability("mode")
	if !ok || c.Kind != attribute.KindSelect {
		t.Errorf("Capability(mode) = %+v, %v", c, ok)
	}

	got := d.Capabilities()
	if len(got) != 2 || got[0].Key != "power" {
		t.Errorf("Capabilities() = %v, want schema order", got)
	}
}

func TestDevice_SnapshotIsolation(t *testing.T) {
	d := New(Info{ID: "dev-1"})
	d.UpdateSnapshot(map[string]any{"power": true, "mode": 1})

	snap := d.Snapshot()
	snap["power"] = false // must not affect the device

	again := d.Snapshot()
	if again["power"] != true {
		t.Error("Snapshot() exposed internal map")
	}

	// Merging keeps untouched keys.
	d.UpdateSnapshot(map[string]any{"mode": 2})
	merged := d.Snapshot()
	if merged["power"] != true || merged["mode"] != 2 {
		t.Errorf("UpdateSnapshot() merge = %v", merged)
	}
}

func TestDevice_ConcurrentSnapshotAccess(t *testing.T) {
	d := New(Info{ID: "dev-1"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d.UpdateSnapshot(map[string]any{"v": n})
				_ = d.Snapshot()
			}
		}(i)
	}
	wg.Wait()
}
