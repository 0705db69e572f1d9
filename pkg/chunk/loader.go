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
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff"
)

// Loader fetches the content of a single chunk. Implementations may read
// from memory, disk or a remote peer.
type Loader interface {
	LoadChunk(ctx context.Context, meta Meta) (string, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, meta Meta) (string, error)

// LoadChunk calls the wrapped function.
func (f LoaderFunc) LoadChunk(ctx context.Context, meta Meta) (string, error) {
	return f(ctx, meta)
}

// SourceLoader serves chunks from an in-memory source snapshot.
func SourceLoader(source string) Loader {
	return LoaderFunc(func(_ context.Context, meta Meta) (string, error) {
		if meta.From < 0 || meta.To > len(source) || meta.From > meta.To {
			return "", fmt.Errorf("range [%d,%d) of %d: %w", meta.From, meta.To, len(source), ErrChunkOutOfRange)
		}
		return source[meta.From:meta.To], nil
	})
}

// RetryingLoader wraps a loader with exponential backoff. Out-of-range
// errors are not retried; everything else is, until the retry budget or the
// context runs out.
func RetryingLoader(loader Loader, maxRetries uint64) Loader {
	return LoaderFunc(func(ctx context.Context, meta Meta) (string, error) {
		var content string
		operation := func() error {
			var err error
			content, err = loader.LoadChunk(ctx, meta)
			if err == nil {
				return nil
			}
			if errors.Is(err, ErrChunkOutOfRange) {
				return backoff.Permanent(err)
			}
			return err
		}

		b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries)
		if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
			return "", fmt.Errorf("chunk %d: %v: %w", meta.Index, err, ErrLoadFailed)
		}
		return content, nil
	})
}
