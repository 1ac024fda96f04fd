package ephemeris

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/astro-resonance-service/internal/domain"
	"github.com/couchcryptid/astro-resonance-service/internal/observability"
)

// CachedEphemeris wraps an Ephemeris with in-memory LRU caches keyed by the
// minute-resolution moment.
type CachedEphemeris struct {
	inner     domain.Ephemeris
	metrics   *observability.Metrics
	positions *lruCache[domain.PositionSet]
	houses    *lruCache[domain.HouseCusps]
}

// NewCachedEphemeris creates a cache decorator around an ephemeris. Each of
// the two caches holds up to maxEntries results.
func NewCachedEphemeris(inner domain.Ephemeris, maxEntries int, metrics *observability.Metrics) *CachedEphemeris {
	return &CachedEphemeris{
		inner:     inner,
		metrics:   metrics,
		positions: newLRUCache[domain.PositionSet](maxEntries),
		houses:    newLRUCache[domain.HouseCusps](maxEntries),
	}
}

func (c *CachedEphemeris) PositionsAt(ctx context.Context, m domain.Moment) (domain.PositionSet, error) {
	key := m.String()
	if ps, ok := c.positions.get(key); ok {
		c.record("positions", "hit")
		return clonePositions(ps), nil
	}
	c.record("positions", "miss")

	ps, err := c.inner.PositionsAt(ctx, m)
	if err != nil {
		return nil, err
	}
	c.positions.put(key, clonePositions(ps))
	return ps, nil
}

func (c *CachedEphemeris) HousesAt(ctx context.Context, m domain.Moment, loc domain.Location) (domain.HouseCusps, error) {
	key := fmt.Sprintf("%s|%.6f,%.6f", m, loc.Lat, loc.Lon)
	if hc, ok := c.houses.get(key); ok {
		c.record("houses", "hit")
		return hc, nil
	}
	c.record("houses", "miss")

	hc, err := c.inner.HousesAt(ctx, m, loc)
	if err != nil {
		// Errors are not cached so a later call can succeed.
		return hc, err
	}
	c.houses.put(key, hc)
	return hc, nil
}

func (c *CachedEphemeris) record(op, result string) {
	c.metrics.EphemerisCache.WithLabelValues(op, result).Inc()
}

func clonePositions(ps domain.PositionSet) domain.PositionSet {
	return append(domain.PositionSet(nil), ps...)
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[V]) remove(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
