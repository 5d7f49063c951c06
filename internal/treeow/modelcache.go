package treeow

import (
	"sync"
	"time"

	"github.com/lboswell/treeow-core/internal/attribute"
)

// ModelCache holds fetched capability schemas keyed by device ID.
//
// An entry serves reads only while it is younger than the TTL and was
// fetched for the schema version the device currently reports; a version
// bump invalidates immediately regardless of age. Entries are replaced
// wholesale. Concurrent fetches of the same schema are allowed and the
// last writer wins: schemas for a given version are identical, so the
// duplicate fetch is waste, not corruption.
type ModelCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]modelEntry
	now     func() time.Time
}

type modelEntry struct {
	attrs     []attribute.RawAttribute
	version   string
	fetchedAt time.Time
}

// NewModelCache creates a cache with the given entry TTL.
// A non-positive TTL defaults to one hour.
func NewModelCache(ttl time.Duration) *ModelCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ModelCache{
		ttl:     ttl,
		entries: make(map[string]modelEntry),
		now:     time.Now,
	}
}

// Get returns the cached schema for the device if it is fresh and matches
// the device's current schema version.
func (c *ModelCache) Get(deviceID, version string) ([]attribute.RawAttribute, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[deviceID]
	if !ok {
		return nil, false
	}
	if entry.version != version || c.now().Sub(entry.fetchedAt) >= c.ttl {
		delete(c.entries, deviceID)
		return nil, false
	}
	return entry.attrs, true
}

// Put stores a freshly fetched schema, replacing any previous entry.
func (c *ModelCache) Put(deviceID, version string, attrs []attribute.RawAttribute) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[deviceID] = modelEntry{
		attrs:     attrs,
		version:   version,
		fetchedAt: c.now(),
	}
}

// PurgeExpired drops entries past the TTL and reports how many were
// removed. The sync engine sweeps periodically so long-gone devices do
// not pin their schemas in memory.
func (c *ModelCache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for id, entry := range c.entries {
		if now.Sub(entry.fetchedAt) >= c.ttl {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached entries, fresh or not.
func (c *ModelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
