package lookup

import (
	"container/list"
	"sync"
)

// cache is a small LRU keyed by normalized text.
type cache[V any] struct {
	mu    sync.Mutex
	max   int
	order *list.List
	items map[string]*list.Element
}

type cacheEntry[V any] struct {
	key   string
	value V
}

func newCache[V any](max int) *cache[V] {
	return &cache[V]{max: max, order: list.New(), items: make(map[string]*list.Element)}
}

func (c *cache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		return el.Value.(cacheEntry[V]).value, true
	}
	var zero V
	return zero, false
}

func (c *cache[V]) put(key string, value V) {
	if c.max <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value = cacheEntry[V]{key: key, value: value}
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(cacheEntry[V]{key: key, value: value})
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(cacheEntry[V]).key)
	}
}
