package offline

import (
	"sync"

	"hotel_bookings/internal/adapters/observability"
	"hotel_bookings/internal/domain"
)

// Cache is the in-memory last-known-good set of entities for one resource
// type. Ids are unique and insertion order is preserved, so offset paging stays
// stable across incremental loads. There is no eviction.
type Cache[T domain.Entity[T]] struct {
	name string

	mu    sync.RWMutex
	items []T
	index map[string]int
}

func NewCache[T domain.Entity[T]](name string) *Cache[T] {
	return &Cache[T]{name: name, index: map[string]int{}}
}

// Page returns up to limit items starting at offset. NextOffset is nil when
// offset+len(results) reaches the total, otherwise offset+limit.
func (c *Cache[T]) Page(offset, limit int) domain.Page[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := len(c.items)
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	out := domain.Page[T]{Count: total, Results: []T{}}
	if offset < total {
		end := min(offset+limit, total)
		out.Results = append(out.Results, c.items[offset:end]...)
	}
	if offset+len(out.Results) < total {
		next := offset + limit
		out.NextOffset = &next
	}
	observability.ObserveCache(c.name, "page")
	return out
}

func (c *Cache[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		var zero T
		observability.ObserveCache(c.name, "miss")
		return zero, false
	}
	observability.ObserveCache(c.name, "hit")
	return c.items[i], true
}

// Upsert overwrites the entry with v's id in place, or appends it.
func (c *Cache[T]) Upsert(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsertLocked(v)
	observability.ObserveCache(c.name, "set")
}

func (c *Cache[T]) upsertLocked(v T) {
	id := v.EntityID()
	if i, ok := c.index[id]; ok {
		c.items[i] = v
		return
	}
	c.index[id] = len(c.items)
	c.items = append(c.items, v)
}

// Set overwrites the entry with the given id in place. It never appends.
func (c *Cache[T]) Set(id string, v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[id]
	if !ok {
		return false
	}
	if v.EntityID() != id {
		c.removeLocked(v.EntityID())
		i = c.index[id]
		delete(c.index, id)
		c.index[v.EntityID()] = i
	}
	c.items[i] = v
	observability.ObserveCache(c.name, "set")
	return true
}

// Replace swaps the entry stored under oldID for v, keeping its position.
// Any other entry already carrying v's id is dropped so ids stay unique.
func (c *Cache[T]) Replace(oldID string, v T) bool {
	return c.Set(oldID, v)
}

func (c *Cache[T]) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ok := c.removeLocked(id)
	if ok {
		observability.ObserveCache(c.name, "del")
	}
	return ok
}

func (c *Cache[T]) removeLocked(id string) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].EntityID()] = j
	}
	return true
}

// ReplaceAll discards the cache and loads items (later duplicates win).
func (c *Cache[T]) ReplaceAll(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make([]T, 0, len(items))
	c.index = make(map[string]int, len(items))
	for _, v := range items {
		c.upsertLocked(v)
	}
	observability.ObserveCache(c.name, "reload")
}

// AppendNew appends the items whose ids are not cached yet.
func (c *Cache[T]) AppendNew(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range items {
		if _, ok := c.index[v.EntityID()]; ok {
			continue
		}
		c.upsertLocked(v)
	}
}

// Filter scans the whole cache in insertion order.
func (c *Cache[T]) Filter(pred func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []T{}
	for _, v := range c.items {
		if pred(v) {
			out = append(out, v)
		}
	}
	return out
}

func (c *Cache[T]) All() []T {
	return c.Filter(func(T) bool { return true })
}

func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
