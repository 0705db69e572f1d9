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

package chunk_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manuscript-team/manuscript/pkg/chunk"
)

func TestPartition(t *testing.T) {
	t.Run("chunks cover the body exactly test", func(t *testing.T) {
		manifest, err := chunk.Partition(1000, 256)
		require.NoError(t, err)
		require.Equal(t, 4, manifest.Len())

		chunks := manifest.Chunks()
		assert.Equal(t, 0, chunks[0].From)
		for i := 1; i < len(chunks); i++ {
			assert.Equal(t, chunks[i-1].To, chunks[i].From)
		}
		assert.Equal(t, 1000, chunks[len(chunks)-1].To)
	})

	t.Run("empty body test", func(t *testing.T) {
		manifest, err := chunk.Partition(0, 256)
		require.NoError(t, err)
		assert.Equal(t, 0, manifest.Len())
	})

	t.Run("invalid chunk size test", func(t *testing.T) {
		_, err := chunk.Partition(100, 0)
		assert.ErrorIs(t, err, chunk.ErrInvalidChunkSize)
	})

	t.Run("covering lookup test", func(t *testing.T) {
		manifest, err := chunk.Partition(1000, 256)
		require.NoError(t, err)

		meta, err := manifest.Covering(0)
		require.NoError(t, err)
		assert.Equal(t, 0, meta.Index)

		meta, err = manifest.Covering(999)
		require.NoError(t, err)
		assert.Equal(t, 3, meta.Index)

		_, err = manifest.Covering(1000)
		assert.ErrorIs(t, err, chunk.ErrChunkOutOfRange)
	})
}

func TestStore(t *testing.T) {
	source := strings.Repeat("0123456789", 100)

	newStore := func(t *testing.T, maxResident int) *chunk.Store {
		t.Helper()
		manifest, err := chunk.Partition(len(source), 100)
		require.NoError(t, err)
		store, err := chunk.NewStore(manifest, chunk.SourceLoader(source), maxResident)
		require.NoError(t, err)
		return store
	}

	t.Run("loads on demand test", func(t *testing.T) {
		store := newStore(t, 4)

		content, err := store.Get(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, source[:100], content)
		assert.Equal(t, 1, store.Resident())
	})

	t.Run("evicts beyond capacity test", func(t *testing.T) {
		store := newStore(t, 2)

		for i := 0; i < 5; i++ {
			_, err := store.Get(context.Background(), i)
			require.NoError(t, err)
		}
		assert.Equal(t, 2, store.Resident())
	})

	t.Run("pinned chunks survive eviction test", func(t *testing.T) {
		store := newStore(t, 2)

		_, err := store.Get(context.Background(), 0)
		require.NoError(t, err)
		store.Pin(0)
		defer store.Unpin(0)

		for i := 1; i < 6; i++ {
			_, err := store.Get(context.Background(), i)
			require.NoError(t, err)
		}

		// Chunk 0 must still be served without a reload even though it is
		// the least recently used.
		content, err := store.Get(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, source[:100], content)
	})

	t.Run("read range spans chunks test", func(t *testing.T) {
		store := newStore(t, 4)

		content, err := store.ReadRange(context.Background(), 250, 750)
		require.NoError(t, err)
		assert.Equal(t, source[250:750], content)

		content, err = store.ReadRange(context.Background(), 0, len(source))
		require.NoError(t, err)
		assert.Equal(t, source, content)

		empty, err := store.ReadRange(context.Background(), 42, 42)
		require.NoError(t, err)
		assert.Equal(t, "", empty)
	})

	t.Run("read range out of bounds test", func(t *testing.T) {
		store := newStore(t, 4)

		_, err := store.ReadRange(context.Background(), 0, len(source)+1)
		assert.ErrorIs(t, err, chunk.ErrChunkOutOfRange)
	})

	t.Run("chunk index out of range test", func(t *testing.T) {
		store := newStore(t, 4)

		_, err := store.Get(context.Background(), 99)
		assert.ErrorIs(t, err, chunk.ErrChunkOutOfRange)
	})
}

func TestRetryingLoader(t *testing.T) {
	t.Run("transient failures are retried test", func(t *testing.T) {
		failures := 2
		flaky := chunk.LoaderFunc(func(_ context.Context, meta chunk.Meta) (string, error) {
			if failures > 0 {
				failures--
				return "", errors.New("transient")
			}
			return "content", nil
		})

		loader := chunk.RetryingLoader(flaky, 3)
		content, err := loader.LoadChunk(context.Background(), chunk.Meta{})
		require.NoError(t, err)
		assert.Equal(t, "content", content)
	})

	t.Run("retry budget exhausted test", func(t *testing.T) {
		broken := chunk.LoaderFunc(func(context.Context, chunk.Meta) (string, error) {
			return "", errors.New("always down")
		})

		loader := chunk.RetryingLoader(broken, 1)
		_, err := loader.LoadChunk(context.Background(), chunk.Meta{})
		assert.ErrorIs(t, err, chunk.ErrLoadFailed)
	})

	t.Run("out of range is not retried test", func(t *testing.T) {
		calls := 0
		loader := chunk.RetryingLoader(chunk.LoaderFunc(func(context.Context, chunk.Meta) (string, error) {
			calls++
			return "", chunk.ErrChunkOutOfRange
		}), 5)

		_, err := loader.LoadChunk(context.Background(), chunk.Meta{})
		assert.ErrorIs(t, err, chunk.ErrLoadFailed)
		assert.Equal(t, 1, calls)
	})
}
