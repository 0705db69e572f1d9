/*
 * Copyright 2026 The Manuscript Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cache provides the independent caches used around the engine:
// rendered artifacts by content hash, parsed documents by source hash, and
// the last computed history timeline. The caches are read-through from the
// caller's point of view: they never compute values themselves.
package cache

import (
	"container/list"
	"errors"
	"sync"
)

var (
	// ErrInvalidBudget is returned when a cache is created with a
	// non-positive size or byte budget.
	ErrInvalidBudget = errors.New("cache budget must be > 0")
)

// RenderCache caches rendered artifact bytes by content hash. It is bounded
// by a total byte budget rather than an entry count: inserting evicts the
// least recently used entries until the new entry fits. Entries larger than
// the whole budget are not cached.
type RenderCache struct {
	lock sync.Mutex

	byteBudget   int
	currentBytes int
	evictionList list.List
	entries      map[string]*list.Element

	stats Stats
}

type renderEntry struct {
	key      string
	artifact []byte
}

// NewRenderCache creates a render cache with the given byte budget.
func NewRenderCache(byteBudget int) (*RenderCache, error) {
	if byteBudget <= 0 {
		return nil, ErrInvalidBudget
	}

	return &RenderCache{
		byteBudget: byteBudget,
		entries:    map[string]*list.Element{},
	}, nil
}

// Get returns the artifact cached under the given content hash.
func (c *RenderCache) Get(contentHash string) ([]byte, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	element, ok := c.entries[contentHash]
	if !ok {
		c.stats.miss()
		return nil, false
	}

	c.evictionList.MoveToFront(element)
	c.stats.hit()
	return element.Value.(*renderEntry).artifact, true
}

// Add caches the artifact under the given content hash, evicting the oldest
// entries until it fits. It returns whether the artifact was cached.
func (c *RenderCache) Add(contentHash string, artifact []byte) bool {
	if len(artifact) > c.byteBudget {
		return false
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if element, ok := c.entries[contentHash]; ok {
		entry := element.Value.(*renderEntry)
		c.currentBytes += len(artifact) - len(entry.artifact)
		entry.artifact = artifact
		c.evictionList.MoveToFront(element)
		c.evictUntilFits()
		return true
	}

	c.currentBytes += len(artifact)
	element := c.evictionList.PushFront(&renderEntry{key: contentHash, artifact: artifact})
	c.entries[contentHash] = element
	c.evictUntilFits()
	return true
}

// evictUntilFits drops entries from the back until the budget is respected.
// The caller holds the lock.
func (c *RenderCache) evictUntilFits() {
	for c.currentBytes > c.byteBudget {
		toEvict := c.evictionList.Back()
		if toEvict == nil {
			return
		}
		entry := toEvict.Value.(*renderEntry)
		c.evictionList.Remove(toEvict)
		delete(c.entries, entry.key)
		c.currentBytes -= len(entry.artifact)
	}
}

// Len returns the number of cached artifacts.
func (c *RenderCache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.evictionList.Len()
}

// Bytes returns the total bytes currently cached.
func (c *RenderCache) Bytes() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.currentBytes
}

// Stats returns the cache statistics.
func (c *RenderCache) Stats() *Stats {
	return &c.stats
}
