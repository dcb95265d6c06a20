package openmeteo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/observability"
)

// CachedWeather wraps a WeatherSource with an in-memory LRU cache. Archive
// data for past days does not change, so entries never expire.
type CachedWeather struct {
	inner   domain.WeatherSource
	cache   *lruCache[[]domain.DailyWeather]
	metrics *observability.Metrics
}

// NewCachedWeather creates a cache decorator around a weather source.
func NewCachedWeather(inner domain.WeatherSource, maxEntries int, metrics *observability.Metrics) *CachedWeather {
	return &CachedWeather{
		inner:   inner,
		cache:   newLRUCache[[]domain.DailyWeather](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedWeather) DailyWeather(ctx context.Context, p domain.Point, from, to time.Time) ([]domain.DailyWeather, error) {
	key := fmt.Sprintf("%.4f,%.4f|%s|%s", p.Lat, p.Lon, from.UTC().Format(time.DateOnly), to.UTC().Format(time.DateOnly))
	if days, ok := c.cache.get(key); ok {
		c.metrics.WeatherCache.WithLabelValues("hit").Inc()
		return days, nil
	}
	c.metrics.WeatherCache.WithLabelValues("miss").Inc()

	days, err := c.inner.DailyWeather(ctx, p, from, to)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty results so gaps the archive fills later can be retried.
	if len(days) > 0 {
		c.cache.put(key, days)
	}
	return days, nil
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
		maxEntries: max(maxEntries, 1),
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
