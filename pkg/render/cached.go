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

package render

import (
	"bytes"
	"context"

	"github.com/manuscript-team/manuscript/pkg/cache"
)

// CachedRenderer serves identical sources from the render cache. Only
// successful renders are cached; failures always hit the backend again.
type CachedRenderer struct {
	backend Renderer
	cache   *cache.RenderCache
}

// NewCachedRenderer wraps the backend with the given cache.
func NewCachedRenderer(backend Renderer, renderCache *cache.RenderCache) *CachedRenderer {
	return &CachedRenderer{backend: backend, cache: renderCache}
}

// Render returns the cached artifact for the source, rendering on a miss.
func (r *CachedRenderer) Render(ctx context.Context, source string) (*Artifact, error) {
	hash := ContentHash(source)
	if encoded, ok := r.cache.Get(hash); ok {
		if artifact, ok := decodeArtifact(encoded); ok {
			return artifact, nil
		}
	}

	artifact, err := r.backend.Render(ctx, source)
	if err != nil {
		return nil, err
	}

	r.cache.Add(hash, encodeArtifact(artifact))
	return artifact, nil
}

// encodeArtifact flattens an artifact for the byte-budget cache. The MIME
// type is prefixed, separated by a NUL which cannot occur in a media type.
func encodeArtifact(artifact *Artifact) []byte {
	encoded := make([]byte, 0, len(artifact.MIME)+1+len(artifact.Data))
	encoded = append(encoded, artifact.MIME...)
	encoded = append(encoded, 0)
	return append(encoded, artifact.Data...)
}

func decodeArtifact(encoded []byte) (*Artifact, bool) {
	sep := bytes.IndexByte(encoded, 0)
	if sep < 0 {
		return nil, false
	}
	return &Artifact{
		MIME: string(encoded[:sep]),
		Data: encoded[sep+1:],
	}, true
}
