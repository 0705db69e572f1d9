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

package chunk

import (
	"container/list"
	"context"
	"fmt"
	"strings"
	"sync"
)

const (
	// DefaultChunkSize is the byte size of a chunk unless configured.
	DefaultChunkSize = 256 << 10

	// DefaultThreshold is the body size from which chunked access kicks in.
	DefaultThreshold = 1 << 20

	// DefaultMaxResident is the number of chunks kept in memory.
	DefaultMaxResident = 16

	// DefaultLoadRetries bounds retryable chunk loads.
	DefaultLoadRetries = 3
)

// Store caches loaded chunks with LRU eviction. Pinned chunks and chunks
// with a load in flight are never evicted; when every resident chunk is
// pinned the store temporarily exceeds its capacity rather than fail.
type Store struct {
	mu sync.Mutex

	manifest    *Manifest
	loader      Loader
	maxResident int

	entries      map[int]*list.Element
	evictionList list.List
	pins         map[int]int
	inflight     map[int]chan struct{}
}

type storeEntry struct {
	index   int
	content string
}

// NewStore creates a store over the given manifest.
func NewStore(manifest *Manifest, loader Loader, maxResident int) (*Store, error) {
	if maxResident <= 0 {
		return nil, fmt.Errorf("max resident %d: %w", maxResident, ErrInvalidChunkSize)
	}

	return &Store{
		manifest:    manifest,
		loader:      loader,
		maxResident: maxResident,
		entries:     map[int]*list.Element{},
		pins:        map[int]int{},
		inflight:    map[int]chan struct{}{},
	}, nil
}

// Manifest returns the partition this store serves.
func (s *Store) Manifest() *Manifest {
	return s.manifest
}

// Get returns the content of the chunk at the given index, loading it if it
// is not resident. Concurrent requests for the same chunk share one load.
func (s *Store) Get(ctx context.Context, index int) (string, error) {
	meta, err := s.manifest.At(index)
	if err != nil {
		return "", err
	}

	for {
		s.mu.Lock()
		if element, ok := s.entries[index]; ok {
			s.evictionList.MoveToFront(element)
			content := element.Value.(*storeEntry).content
			s.mu.Unlock()
			return content, nil
		}
		if done, ok := s.inflight[index]; ok {
			s.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return "", ctx.Err()
			}
			continue
		}

		done := make(chan struct{})
		s.inflight[index] = done
		s.mu.Unlock()

		content, err := s.loader.LoadChunk(ctx, meta)

		s.mu.Lock()
		delete(s.inflight, index)
		close(done)
		if err != nil {
			s.mu.Unlock()
			return "", err
		}
		s.insert(index, content)
		s.mu.Unlock()
		return content, nil
	}
}

// Pin marks the chunk as not evictable. Pins nest; each Pin needs a
// matching Unpin.
func (s *Store) Pin(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins[index]++
}

// Unpin releases a pin on the chunk.
func (s *Store) Unpin(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pins[index] <= 1 {
		delete(s.pins, index)
		return
	}
	s.pins[index]--
}

// Resident returns the number of chunks currently held in memory.
func (s *Store) Resident() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictionList.Len()
}

// ReadRange returns the bytes [from, to) of the body, loading every chunk
// the range spans. The spanned chunks are pinned for the duration of the
// read so a concurrent read cannot evict them mid-assembly.
func (s *Store) ReadRange(ctx context.Context, from, to int) (string, error) {
	if from < 0 || to < from || to > s.manifest.Total() {
		return "", fmt.Errorf("range [%d,%d) of %d: %w", from, to, s.manifest.Total(), ErrChunkOutOfRange)
	}
	if from == to {
		return "", nil
	}

	first, err := s.manifest.Covering(from)
	if err != nil {
		return "", err
	}
	last, err := s.manifest.Covering(to - 1)
	if err != nil {
		return "", err
	}

	for index := first.Index; index <= last.Index; index++ {
		s.Pin(index)
		defer s.Unpin(index)
	}

	var builder strings.Builder
	builder.Grow(to - from)
	for index := first.Index; index <= last.Index; index++ {
		meta, err := s.manifest.At(index)
		if err != nil {
			return "", err
		}
		content, err := s.Get(ctx, index)
		if err != nil {
			return "", err
		}

		start := 0
		if from > meta.From {
			start = from - meta.From
		}
		end := meta.Size()
		if to < meta.To {
			end = to - meta.From
		}
		builder.WriteString(content[start:end])
	}

	return builder.String(), nil
}

// Invalidate drops every resident chunk, typically after the body changed
// and the manifest was rebuilt.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = map[int]*list.Element{}
	s.evictionList.Init()
}

// insert makes the chunk resident and evicts unpinned chunks beyond the
// capacity. The caller holds the lock.
func (s *Store) insert(index int, content string) {
	if element, ok := s.entries[index]; ok {
		element.Value.(*storeEntry).content = content
		s.evictionList.MoveToFront(element)
		return
	}

	s.entries[index] = s.evictionList.PushFront(&storeEntry{index: index, content: content})

	for s.evictionList.Len() > s.maxResident {
		evicted := false
		for element := s.evictionList.Back(); element != nil; element = element.Prev() {
			entry := element.Value.(*storeEntry)
			if s.pins[entry.index] > 0 {
				continue
			}
			s.evictionList.Remove(element)
			delete(s.entries, entry.index)
			evicted = true
			break
		}
		if !evicted {
			// Everything resident is pinned; run over capacity.
			return
		}
	}
}
