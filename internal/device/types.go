package device

import (
	"strings"
	"sync"

	"github.com/lboswell/treeow-core/internal/attribute"
)

// Info carries the immutable identity fields of a device as reported by the
// vendor's device list.
type Info struct {
	// ID is the vendor-assigned device identifier.
	ID string

	// Name is the user-visible device name; falls back to the ID.
	Name string

	// Serial is the device serial, "<productId>:<unit>". The product ID
	// half keys the capability schema lookup.
	Serial string

	// Category is the vendor domain identifier (e.g. an appliance family).
	// Snapshot payloads are keyed by it.
	Category string

	// SchemaVersion is the digital-model version the device reports.
	// A change invalidates any cached capability schema.
	SchemaVersion string

	// GroupID is the home group the device was discovered in.
	GroupID string

	// ResourceCategory and LocalIndex address the capability endpoint
	// for writes and heartbeats.
	ResourceCategory string
	LocalIndex       string
}

// ProductID returns the schema lookup half of the serial, or "" for a
// malformed serial.
func (i Info) ProductID() string {
	productID, _, ok := strings.Cut(i.Serial, ":")
	if !ok {
		return ""
	}
	return productID
}

// Device is one synchronized smart device: immutable identity plus the
// parsed capability set and the last-known value snapshot.
//
// Identity fields are fixed at construction. Capabilities are set once
// during initialization (a schema change requires re-initialization).
// The snapshot is replaced by the sync engine on every successful poll.
// All methods are safe for concurrent use.
type Device struct {
	Info

	mu           sync.RWMutex
	capabilities []*attribute.Capability
	capsByKey    map[string]*attribute.Capability
	snapshot     map[string]any
}

// New creates a device from its identity fields.
func New(info Info) *Device {
	if info.Name == "" {
		info.Name = info.ID
	}
	return &Device{
		Info:      info,
		capsByKey: make(map[string]*attribute.Capability),
		snapshot:  make(map[string]any),
	}
}

// SetCapabilities installs the parsed capability set.
// Called once during device initialization; any previous set is replaced.
func (d *Device) SetCapabilities(caps []*attribute.Capability) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.capabilities = make([]*attribute.Capability, len(caps))
	copy(d.capabilities, caps)

	d.capsByKey = make(map[string]*attribute.Capability, len(caps))
	for _, c := range caps {
		if _, ok := d.capsByKey[c.Key]; !ok {
			d.capsByKey[c.Key] = c
		}
	}
}

// Capabilities returns the parsed capability set in schema order.
func (d *Device) Capabilities() []*attribute.Capability {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*attribute.Capability, len(d.capabilities))
	copy(out, d.capabilities)
	return out
}

// Capability looks up a capability by key.
func (d *Device) Capability(key string) (*attribute.Capability, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.capsByKey[key]
	return c, ok
}

// HasCapability reports whether the device knows the given capability key.
func (d *Device) HasCapability(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.capsByKey[key]
	return ok
}

// UpdateSnapshot merges freshly polled values into the snapshot.
func (d *Device) UpdateSnapshot(values map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for k, v := range values {
		d.snapshot[k] = v
	}
}

// Snapshot returns a copy of the last-known capability values.
func (d *Device) Snapshot() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]any, len(d.snapshot))
	for k, v := range d.snapshot {
		out[k] = v
	}
	return out
}
