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

package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// ParseCache caches parsed document representations by source hash. It is
// bounded by entry count and wraps hashicorp's LRU with statistics.
type ParseCache[V any] struct {
	cache *lru.Cache[string, V]
	stats Stats
}

// NewParseCache creates a parse cache with the given entry capacity.
func NewParseCache[V any](size int) (*ParseCache[V], error) {
	if size <= 0 {
		return nil, ErrInvalidBudget
	}

	c, err := lru.New[string, V](size)
	if err != nil {
		return nil, err
	}
	return &ParseCache[V]{cache: c}, nil
}

// Get retrieves a parsed representation by source hash.
func (c *ParseCache[V]) Get(sourceHash string) (V, bool) {
	value, ok := c.cache.Get(sourceHash)
	if ok {
		c.stats.hit()
	} else {
		c.stats.miss()
	}
	return value, ok
}

// Add caches a parsed representation under the given source hash.
func (c *ParseCache[V]) Add(sourceHash string, value V) {
	c.cache.Add(sourceHash, value)
}

// Remove removes the entry for the given source hash.
func (c *ParseCache[V]) Remove(sourceHash string) {
	c.cache.Remove(sourceHash)
}

// Purge clears all entries.
func (c *ParseCache[V]) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached entries.
func (c *ParseCache[V]) Len() int {
	return c.cache.Len()
}

// Stats returns the cache statistics.
func (c *ParseCache[V]) Stats() *Stats {
	return &c.stats
}
