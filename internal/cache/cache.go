// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

// Package cache provides a small in-process TTL cache with named
// invalidation groups. Writes through the knowledge service invalidate
// whole groups synchronously, so readers never observe a stale hit
// after the write returns.
package cache

import (
	"sync"
	"time"
)

// Group names used by the knowledge service.
const (
	GroupSearch       = "search"
	GroupTaxonomyPath = "taxonomy-path"
	GroupTraversal    = "traversal"
)

// DefaultTTL is used when a cache is built with a non-positive TTL.
const DefaultTTL = 5 * time.Minute

type item struct {
	value     any
	expiresAt time.Time
}

// Cache is a TTL key-value cache where every key belongs to exactly one
// group. Expired items are dropped lazily on read.
type Cache struct {
	mu     sync.RWMutex
	groups map[string]map[string]item
	ttl    time.Duration

	// now is swapped out by tests.
	now func() time.Time
}

// New creates a cache with the given item TTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		groups: make(map[string]map[string]item),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Get returns the cached value for key in group, if present and fresh.
func (c *Cache) Get(group, key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.groups[group][key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !it.expiresAt.After(c.now()) {
		c.mu.Lock()
		// Re-check under the write lock: a Set may have raced in.
		if cur, ok := c.groups[group][key]; ok && !cur.expiresAt.After(c.now()) {
			delete(c.groups[group], key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return it.value, true
}

// Set stores value under key in group with the cache's TTL.
func (c *Cache) Set(group, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.groups[group]
	if !ok {
		g = make(map[string]item)
		c.groups[group] = g
	}
	g[key] = item{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate drops every key in the named groups. It returns only after
// the entries are gone.
func (c *Cache) Invalidate(groups ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range groups {
		delete(c.groups, g)
	}
}

// Flush drops everything.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups = make(map[string]map[string]item)
}

// Len reports the number of live items across all groups.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	n := 0
	for _, g := range c.groups {
		for _, it := range g {
			if it.expiresAt.After(now) {
				n++
			}
		}
	}
	return n
}
