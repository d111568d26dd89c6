// Package repositories holds the in-memory mirror collections the cache keeps
// of the server's authoritative data.
package repositories

import (
	"sync"

	"marketplace-client/internal/models"
)

// Collection is an ordered, id-keyed list. Lookups return the first match,
// the same way the server-ordered array is searched.
type Collection[T any] struct {
	mu    sync.RWMutex
	items []T
	idOf  func(T) int
}

func NewCollection[T any](idOf func(T) int) *Collection[T] {
	return &Collection[T]{idOf: idOf}
}

// Reset replaces the whole collection, keeping the given order.
func (c *Collection[T]) Reset(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(make([]T, 0, len(items)), items...)
}

// All returns a copy of the collection.
func (c *Collection[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append(make([]T, 0, len(c.items)), c.items...)
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Collection[T]) Find(id int) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) Append(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
}

// Replace swaps the first entry with item's id. It reports false when no
// entry matched.
func (c *Collection[T]) Replace(item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(c.idOf(item)); i >= 0 {
		c.items[i] = item
		return true
	}
	return false
}

// Upsert replaces the entry with item's id or appends item.
func (c *Collection[T]) Upsert(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(c.idOf(item)); i >= 0 {
		c.items[i] = item
		return
	}
	c.items = append(c.items, item)
}

// Remove drops every entry with id and reports whether any was present.
func (c *Collection[T]) Remove(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.items[:0]
	removed := false
	for _, item := range c.items {
		if c.idOf(item) == id {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	var zero T
	for i := len(kept); i < len(c.items); i++ {
		c.items[i] = zero
	}
	c.items = kept
	return removed
}

func (c *Collection[T]) indexOf(id int) int {
	for i, item := range c.items {
		if c.idOf(item) == id {
			return i
		}
	}
	return -1
}

// ListingRepository mirrors the server's listings.
type ListingRepository = Collection[models.Listing]

// UserRepository mirrors the server's users.
type UserRepository = Collection[models.User]

func NewListingRepo() *ListingRepository {
	return NewCollection(func(l models.Listing) int { return l.ID })
}

func NewUserRepo() *UserRepository {
	return NewCollection(func(u models.User) int { return u.ID })
}
