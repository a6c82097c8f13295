// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package lrucache

import (
	"container/list"
	"sync"
	"time"
)

// ComputeValue is the closure passed to `Get` to compute the value in
// case it is not cached. It returns the value to store, the duration
// until it expires and a size estimate used for memory accounting.
type ComputeValue func() (value interface{}, ttl time.Duration, size int)

type cacheEntry struct {
	key        string
	value      interface{}
	expiration time.Time
	size       int
	elem       *list.Element
}

// Cache is an in-memory LRU cache with per-entry TTLs and a rough
// memory budget. All methods are safe for concurrent use.
type Cache struct {
	mutex                 sync.Mutex
	maxmemory, usedmemory int
	entries               map[string]*cacheEntry
	lru                   *list.List
}

// New returns a cache that evicts least-recently-used entries once the
// summed size estimates exceed maxmemory.
func New(maxmemory int) *Cache {
	return &Cache{
		maxmemory: maxmemory,
		entries:   map[string]*cacheEntry{},
		lru:       list.New(),
	}
}

// Get returns the cached value for key or, if computeValue is non-nil,
// computes, stores and returns it. A nil computeValue with no cached
// entry returns nil.
func (c *Cache) Get(key string, computeValue ComputeValue) interface{} {
	now := time.Now()

	c.mutex.Lock()
	if entry, ok := c.entries[key]; ok {
		if now.After(entry.expiration) {
			c.evict(entry)
		} else {
			c.lru.MoveToFront(entry.elem)
			value := entry.value
			c.mutex.Unlock()
			return value
		}
	}

	if computeValue == nil {
		c.mutex.Unlock()
		return nil
	}
	c.mutex.Unlock()

	value, ttl, size := computeValue()

	c.mutex.Lock()
	c.put(key, value, ttl, size)
	c.mutex.Unlock()
	return value
}

// Put stores value under key, replacing any previous entry.
func (c *Cache) Put(key string, value interface{}, size int, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.put(key, value, ttl, size)
}

// Del removes the entry for key if present.
func (c *Cache) Del(key string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if entry, ok := c.entries[key]; ok {
		c.evict(entry)
		return true
	}
	return false
}

// Keys calls f for every live entry in no particular order.
func (c *Cache) Keys(f func(key string, val interface{})) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expiration) {
			c.evict(entry)
			continue
		}
		f(key, entry.value)
	}
}

func (c *Cache) put(key string, value interface{}, ttl time.Duration, size int) {
	if entry, ok := c.entries[key]; ok {
		c.evict(entry)
	}

	entry := &cacheEntry{
		key:        key,
		value:      value,
		expiration: time.Now().Add(ttl),
		size:       size,
	}
	entry.elem = c.lru.PushFront(entry)
	c.entries[key] = entry
	c.usedmemory += size

	for c.usedmemory > c.maxmemory && c.lru.Len() > 1 {
		oldest := c.lru.Back()
		c.evict(oldest.Value.(*cacheEntry))
	}
}

func (c *Cache) evict(entry *cacheEntry) {
	c.lru.Remove(entry.elem)
	delete(c.entries, entry.key)
	c.usedmemory -= entry.size
}
