// Package cache provides a small generic in-memory map guarded by a mutex,
// used by the worker pool to track which tasks are currently in flight on
// this process (§4.J) without introducing a second external dependency for
// what is, in-process, a plain concurrent map.
package cache

import (
	"sync"

	"github.com/youneslaaroussi/asset-pipeline/log"
)

type Cache[T interface{}] struct {
	cache map[string]T
	mutex sync.Mutex
}

func New[T interface{}]() *Cache[T] {
	return &Cache[T]{
		cache: make(map[string]T),
	}
}

func (c *Cache[T]) Remove(requestID, key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.cache, key)
	log.Log(requestID, "removing from cache", "key", key)
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	info, ok := c.cache[key]
	return info, ok
}

func (c *Cache[T]) Store(key string, value T) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cache[key] = value
}

func (c *Cache[T]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.cache)
}

func (c *Cache[T]) UnittestIntrospection() *map[string]T {
	return &c.cache
}
