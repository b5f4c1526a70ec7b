package device

import "sync"

// Collection is an ordered set of Devices keyed by ID.
//
// Insertion order is preserved; replacing a record keeps its position.
// Records are stored and returned by value, so callers can never mutate
// the collection through a returned Device.
//
// All methods are thread-safe.
type Collection struct {
	mu    sync.RWMutex
	items []Device
	index map[string]int // ID -> position in items
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{
		index: make(map[string]int),
	}
}

// Replace discards the current contents and loads devices in order.
// Records without an ID are skipped. When an ID repeats, the last record
// wins and keeps the position of the first.
func (c *Collection) Replace(devices []Device) {
	items := make([]Device, 0, len(devices))
	index := make(map[string]int, len(devices))
	for _, d := range devices {
		if d.ID == "" {
			continue
		}
		if pos, ok := index[d.ID]; ok {
			items[pos] = d
			continue
		}
		index[d.ID] = len(items)
		items = append(items, d)
	}

	c.mu.Lock()
	c.items = items
	c.index = index
	c.mu.Unlock()
}

// Upsert replaces the record with the same ID, or appends it.
// Returns true if the record was appended. Records without an ID are ignored.
func (c *Collection) Upsert(d Device) (inserted bool) {
	if d.ID == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if pos, ok := c.index[d.ID]; ok {
		c.items[pos] = d
		return false
	}
	c.index[d.ID] = len(c.items)
	c.items = append(c.items, d)
	return true
}

// Remove deletes the record with the given ID.
// Returns false if it was already absent.
func (c *Collection) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos, ok := c.index[id]
	if !ok {
		return false
	}

	c.items = append(c.items[:pos], c.items[pos+1:]...)
	delete(c.index, id)
	for i := pos; i < len(c.items); i++ {
		c.index[c.items[i].ID] = i
	}
	return true
}

// Get returns the record with the given ID.
func (c *Collection) Get(id string) (Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pos, ok := c.index[id]
	if !ok {
		return Device{}, false
	}
	return c.items[pos], true
}

// Snapshot returns a copy of all records in order.
func (c *Collection) Snapshot() []Device {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Device, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of records.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
