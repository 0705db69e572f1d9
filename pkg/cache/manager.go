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

import "time"

// Config holds the budgets of the managed caches.
type Config struct {
	// RenderBudgetBytes is the total byte budget of the render cache.
	RenderBudgetBytes int

	// ParseEntries is the entry capacity of the parse cache.
	ParseEntries int

	// HistoryTTL is how long a computed timeline stays fresh.
	HistoryTTL time.Duration
}

// Manager bundles the engine's shared caches behind a single construction
// point. P is the parsed representation type. History caches are single-slot
// and per document, so the manager hands them out instead of owning one.
type Manager[P, H any] struct {
	Render *RenderCache
	Parse  *ParseCache[P]

	historyTTL time.Duration
}

// NewManager creates the caches from the given configuration.
func NewManager[P, H any](conf Config) (*Manager[P, H], error) {
	render, err := NewRenderCache(conf.RenderBudgetBytes)
	if err != nil {
		return nil, err
	}

	parse, err := NewParseCache[P](conf.ParseEntries)
	if err != nil {
		return nil, err
	}

	return &Manager[P, H]{
		Render:     render,
		Parse:      parse,
		historyTTL: conf.HistoryTTL,
	}, nil
}

// NewHistorySlot creates a history cache with the configured TTL, one per
// open document.
func (m *Manager[P, H]) NewHistorySlot() *HistoryCache[H] {
	return NewHistoryCache[H](m.historyTTL)
}
