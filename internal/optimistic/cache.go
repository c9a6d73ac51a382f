package optimistic

import (
	"sync"

	"canvas/internal/domain"
)

// Cache is the local id → shape map every component renders from.
// Reads are open to everyone; writes only happen through a Tx so that every
// change has a recorded pre-image.
type Cache struct {
	mu       sync.RWMutex
	shapes   map[string]domain.Shape
	order    []string
	revision uint64
}

func NewCache() *Cache {
	return &Cache{shapes: make(map[string]domain.Shape)}
}

// Snapshot returns deep copies of all shapes in list order.
func (c *Cache) Snapshot() []domain.Shape {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Cache) snapshotLocked() []domain.Shape {
	out := make([]domain.Shape, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.shapes[id].Clone())
	}
	return out
}

// SnapshotAt returns the shapes together with the revision they belong to.
func (c *Cache) SnapshotAt() ([]domain.Shape, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked(), c.revision
}

func (c *Cache) Get(id string) (domain.Shape, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.shapes[id]
	if !ok {
		return domain.Shape{}, false
	}
	return s.Clone(), true
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Revision increases on every change to the cache.
func (c *Cache) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// replace swaps the whole content, as after a refresh from the remote store.
func (c *Cache) replace(shapes []domain.Shape) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceLocked(shapes)
}

func (c *Cache) replaceLocked(shapes []domain.Shape) {
	c.shapes = make(map[string]domain.Shape, len(shapes))
	c.order = c.order[:0]
	for _, s := range shapes {
		if _, dup := c.shapes[s.ID]; !dup {
			c.order = append(c.order, s.ID)
		}
		c.shapes[s.ID] = s.Clone()
	}
	c.revision++
}

func (c *Cache) indexLocked(id string) int {
	for i, v := range c.order {
		if v == id {
			return i
		}
	}
	return -1
}

// putLocked inserts or overwrites s. New shapes go to position at, or the
// end of the list when at is out of range.
func (c *Cache) putLocked(s domain.Shape, at int) {
	if _, ok := c.shapes[s.ID]; !ok {
		if at < 0 || at > len(c.order) {
			at = len(c.order)
		}
		c.order = append(c.order, "")
		copy(c.order[at+1:], c.order[at:])
		c.order[at] = s.ID
	}
	c.shapes[s.ID] = s.Clone()
	c.revision++
}

func (c *Cache) removeLocked(id string) {
	if _, ok := c.shapes[id]; !ok {
		return
	}
	delete(c.shapes, id)
	if i := c.indexLocked(id); i >= 0 {
		c.order = append(c.order[:i], c.order[i+1:]...)
	}
	c.revision++
}
