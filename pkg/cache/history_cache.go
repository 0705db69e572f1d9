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
	"sync"
	"time"
)

// HistoryCache is a single-slot cache for the last computed history timeline.
// Reads return nothing once the entry is older than the TTL, forcing the
// caller to recompute; any document mutation invalidates it immediately
// regardless of age.
type HistoryCache[V any] struct {
	lock sync.Mutex

	ttl        time.Duration
	value      V
	computedAt time.Time
	valid      bool

	stats Stats
}

// NewHistoryCache creates a history cache with the given TTL.
func NewHistoryCache[V any](ttl time.Duration) *HistoryCache[V] {
	return &HistoryCache[V]{ttl: ttl}
}

// Get returns the cached value if present and younger than the TTL.
func (c *HistoryCache[V]) Get() (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	var zero V
	if !c.valid || time.Since(c.computedAt) > c.ttl {
		c.valid = false
		c.stats.miss()
		return zero, false
	}

	c.stats.hit()
	return c.value, true
}

// Put stores the freshly computed value.
func (c *HistoryCache[V]) Put(value V) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.value = value
	c.computedAt = time.Now()
	c.valid = true
}

// Invalidate drops the cached value immediately.
func (c *HistoryCache[V]) Invalidate() {
	c.lock.Lock()
	defer c.lock.Unlock()

	var zero V
	c.value = zero
	c.valid = false
}

// Stats returns the cache statistics.
func (c *HistoryCache[V]) Stats() *Stats {
	return &c.stats
}
