package cache

import (
	"container/list"
	"sync"
)

// LRUCache keeps at most maxSize entries and evicts the least recently used
// one when full.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	index   map[string]*list.Element
	order   *list.List // front is most recent
}

var _ Cache[struct{}] = (*LRUCache[struct{}])(nil)

type entry[T any] struct {
	key   string
	value T
}

func NewLRUCache[T any](maxSize int) *LRUCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		index:   make(map[string]*list.Element, maxSize),
		order:   list.New(),
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*entry[T]).value, true
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

// GetOrSet returns the cached value for key when present. Otherwise it stores
// value and reports false.
func (c *LRUCache[T]) GetOrSet(key string, value T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*entry[T]).value, true
	}
	c.set(key, value)
	return value, false
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.remove(elem)
	}
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRUCache[T]) set(key string, value T) {
	if elem, ok := c.index[key]; ok {
		elem.Value.(*entry[T]).value = value
		c.order.MoveToFront(elem)
		return
	}
	c.index[key] = c.order.PushFront(&entry[T]{key: key, value: value})
	if c.order.Len() > c.maxSize {
		c.remove(c.order.Back())
	}
}

func (c *LRUCache[T]) remove(elem *list.Element) {
	delete(c.index, elem.Value.(*entry[T]).key)
	c.order.Remove(elem)
}
