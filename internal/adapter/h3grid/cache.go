package h3grid

import (
	"container/list"
	"sync"

	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
)

// CachedIndexer wraps a HexIndexer with bounded LRU caches for point lookups,
// centers, and boundaries. The lookup API asks for the same cells repeatedly.
type CachedIndexer struct {
	inner    domain.HexIndexer
	cells    *lruCache[pointKey, domain.CellID]
	centers  *lruCache[domain.CellID, domain.Point]
	boundary *lruCache[domain.CellID, []domain.Point]
}

type pointKey struct {
	p   domain.Point
	res int
}

// NewCachedIndexer creates a cache decorator holding up to maxEntries items
// per cache.
func NewCachedIndexer(inner domain.HexIndexer, maxEntries int) *CachedIndexer {
	return &CachedIndexer{
		inner:    inner,
		cells:    newLRUCache[pointKey, domain.CellID](maxEntries),
		centers:  newLRUCache[domain.CellID, domain.Point](maxEntries),
		boundary: newLRUCache[domain.CellID, []domain.Point](maxEntries),
	}
}

func (c *CachedIndexer) PointToCell(p domain.Point, resolution int) (domain.CellID, error) {
	key := pointKey{p: p, res: resolution}
	if id, ok := c.cells.get(key); ok {
		return id, nil
	}
	id, err := c.inner.PointToCell(p, resolution)
	if err != nil {
		return "", err
	}
	c.cells.put(key, id)
	return id, nil
}

func (c *CachedIndexer) CellToCenter(id domain.CellID) (domain.Point, error) {
	if p, ok := c.centers.get(id); ok {
		return p, nil
	}
	p, err := c.inner.CellToCenter(id)
	if err != nil {
		return p, err
	}
	c.centers.put(id, p)
	return p, nil
}

// RingExpand is not cached; results depend on the radius and are only used
// by the pipeline.
func (c *CachedIndexer) RingExpand(id domain.CellID, radius int) []domain.CellID {
	return c.inner.RingExpand(id, radius)
}

// CellBoundary returns a copy of the cached vertex slice.
func (c *CachedIndexer) CellBoundary(id domain.CellID) ([]domain.Point, error) {
	if b, ok := c.boundary.get(id); ok {
		return append([]domain.Point(nil), b...), nil
	}
	b, err := c.inner.CellBoundary(id)
	if err != nil {
		return nil, err
	}
	c.boundary.put(id, append([]domain.Point(nil), b...))
	return b, nil
}

// lruCache is a thread-safe LRU cache. The front of order is the most
// recently used entry.
type lruCache[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[K]*list.Element
	order      *list.List
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache[K, V]{
		maxEntries: maxEntries,
		entries:    make(map[K]*list.Element),
		order:      list.New(),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry[K, V]).value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*lruEntry[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value})

	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruEntry[K, V]).key)
	}
}

func (c *lruCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
