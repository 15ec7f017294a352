package asynccache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Producer is the underlying asynchronous lookup memoized by a Cache.
type Producer[A, V any] func(ctx context.Context, arg A) (V, error)

// KeyFunc extracts the cache key from a producer argument.
type KeyFunc[A any] func(arg A) string

// Options tweak the capacity and age bounds of a Cache. Zero values mean
// unbounded.
type Options struct {
	MaxEntries int
	MaxAge     time.Duration
}

type entry[V any] struct {
	key        string
	value      V
	insertedAt time.Time
}

// Cache memoizes an idempotent asynchronous producer keyed by a
// caller-supplied key function. Concurrent calls for the same key share a
// single in-flight producer invocation, successful results are retained
// until evicted by capacity (least-recently-used) or age, and failed
// attempts are never cached.
type Cache[A, V any] struct {
	producer Producer[A, V]
	keyOf    KeyFunc[A]
	opts     Options

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front = most recently used
	now     func() time.Time
}

// New returns a Cache memoizing the given producer.
func New[A, V any](
	producer Producer[A, V], keyOf KeyFunc[A], opts Options,
) *Cache[A, V] {
	return &Cache[A, V]{
		producer: producer,
		keyOf:    keyOf,
		opts:     opts,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		now:      time.Now,
	}
}

// Get returns the cached value for arg, invoking the producer on a miss.
// While a producer invocation for the key is in flight, every concurrent
// Get for the same key awaits that single invocation; its error, if any,
// is propagated to all of them and nothing is cached.
func (c *Cache[A, V]) Get(ctx context.Context, arg A) (V, error) {
	key := c.keyOf(arg)

	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Re-check under singleflight, a concurrent call may have
		// populated the entry via Hydrate.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := c.producer(ctx, arg)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Hydrate injects a value for arg directly, bypassing the producer. It is
// meant for producers that incidentally learn the answer for a key other
// than the one they were invoked with.
func (c *Cache[A, V]) Hydrate(arg A, value V) {
	c.store(c.keyOf(arg), value)
}

// Clear drops the entry for arg, if any.
func (c *Cache[A, V]) Clear(arg A) {
	key := c.keyOf(arg)
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.lru.Remove(el)
		delete(c.entries, key)
	}
}

// Len returns the number of resolved entries currently retained.
func (c *Cache[A, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[A, V]) lookup(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	ent := el.Value.(*entry[V])
	if c.opts.MaxAge > 0 && c.now().Sub(ent.insertedAt) > c.opts.MaxAge {
		c.lru.Remove(el)
		delete(c.entries, key)
		return zero, false
	}
	c.lru.MoveToFront(el)
	return ent.value, true
}

func (c *Cache[A, V]) store(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*entry[V])
		ent.value = value
		ent.insertedAt = c.now()
		c.lru.MoveToFront(el)
		return
	}

	el := c.lru.PushFront(&entry[V]{key: key, value: value, insertedAt: c.now()})
	c.entries[key] = el

	if c.opts.MaxEntries > 0 {
		for len(c.entries) > c.opts.MaxEntries {
			oldest := c.lru.Back()
			if oldest == nil {
				break
			}
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry[V]).key)
		}
	}
}
