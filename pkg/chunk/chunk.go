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

// Package chunk provides windowed access to large document bodies. A
// manifest partitions the body into contiguous, non-overlapping byte ranges
// that together cover it exactly; a store loads and caches chunk contents on
// demand so that the whole body never has to be materialized at once.
package chunk

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidChunkSize is returned when a manifest is built with a
	// non-positive chunk size.
	ErrInvalidChunkSize = errors.New("chunk size must be > 0")

	// ErrChunkOutOfRange is returned when a chunk index or byte offset lies
	// outside the manifest.
	ErrChunkOutOfRange = errors.New("chunk out of range")

	// ErrLoadFailed is returned when a chunk could not be loaded after
	// retries.
	ErrLoadFailed = errors.New("chunk load failed")
)

// Meta describes one chunk: its position in the manifest and the byte range
// [From, To) it occupies in the document body.
type Meta struct {
	Index int
	From  int
	To    int
}

// Size returns the chunk's byte length.
func (m Meta) Size() int {
	return m.To - m.From
}

// Manifest is the partition of a document body into chunks. Chunks are
// contiguous, non-overlapping and cover the body exactly.
type Manifest struct {
	chunks []Meta
	total  int
}

// Partition builds a manifest over a body of the given total length. Every
// chunk but the last has exactly chunkSize bytes. A zero-length body yields
// an empty manifest.
func Partition(total, chunkSize int) (*Manifest, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if total < 0 {
		return nil, fmt.Errorf("total length %d: %w", total, ErrChunkOutOfRange)
	}

	m := &Manifest{total: total}
	for from := 0; from < total; from += chunkSize {
		to := from + chunkSize
		if to > total {
			to = total
		}
		m.chunks = append(m.chunks, Meta{Index: len(m.chunks), From: from, To: to})
	}
	return m, nil
}

// Len returns the number of chunks.
func (m *Manifest) Len() int {
	return len(m.chunks)
}

// Total returns the total body length the manifest covers.
func (m *Manifest) Total() int {
	return m.total
}

// At returns the chunk at the given index.
func (m *Manifest) At(index int) (Meta, error) {
	if index < 0 || index >= len(m.chunks) {
		return Meta{}, fmt.Errorf("chunk %d of %d: %w", index, len(m.chunks), ErrChunkOutOfRange)
	}
	return m.chunks[index], nil
}

// Covering returns the chunk containing the given byte offset.
func (m *Manifest) Covering(offset int) (Meta, error) {
	if offset < 0 || offset >= m.total {
		return Meta{}, fmt.Errorf("offset %d of %d: %w", offset, m.total, ErrChunkOutOfRange)
	}
	// Chunks are uniform except the last, so the index is direct.
	size := m.chunks[0].Size()
	index := offset / size
	return m.chunks[index], nil
}

// Chunks returns the manifest's chunks in order.
func (m *Manifest) Chunks() []Meta {
	chunks := make([]Meta, len(m.chunks))
	copy(chunks, m.chunks)
	return chunks
}
