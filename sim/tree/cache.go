package tree

import "sync"

// EventCache memoizes the event list of a tree that changes only
// occasionally, as in an MCMC host proposing edits and rolling them back.
//
// Protocol per proposal: Store before editing, Invalidate after the edit,
// Get to evaluate, and Restore if the proposal is rejected.
type EventCache struct {
	mu sync.Mutex

	current *EventList
	origin  float64
	dirty   bool

	stored       *EventList
	storedOrigin float64
	storedDirty  bool
}

// NewEventCache returns an empty cache; the first Get builds the list.
func NewEventCache() *EventCache {
	return &EventCache{dirty: true}
}

// Get returns the cached list, rebuilding it if the cache was invalidated
// or origin changed since the last build.
func (c *EventCache) Get(t *Tree, origin float64) (*EventList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty && c.current != nil && c.origin == origin {
		return c.current, nil
	}
	list, err := BuildEventList(t, origin)
	if err != nil {
		return nil, err
	}
	c.current, c.origin, c.dirty = list, origin, false
	return list, nil
}

// Invalidate marks the cached list stale.
func (c *EventCache) Invalidate() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

// Store checkpoints the current list.
func (c *EventCache) Store() {
	c.mu.Lock()
	c.stored, c.storedOrigin, c.storedDirty = c.current, c.origin, c.dirty
	c.mu.Unlock()
}

// Restore rolls back to the last checkpoint.
func (c *EventCache) Restore() {
	c.mu.Lock()
	c.current, c.origin, c.dirty = c.stored, c.storedOrigin, c.storedDirty
	c.mu.Unlock()
}
