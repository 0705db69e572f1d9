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

// Package render turns document sources into preview artifacts and exported
// files. The backends are pluggable; this package fixes the interfaces, the
// error taxonomy and the content-addressed caching in front of them.
package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Artifact is a rendered preview of a document source.
type Artifact struct {
	// MIME is the artifact's media type, e.g. "application/pdf".
	MIME string

	// Data is the artifact's bytes.
	Data []byte
}

// Renderer compiles a document source into a preview artifact.
type Renderer interface {
	Render(ctx context.Context, source string) (*Artifact, error)
}

// Exporter applies a named template to a document source and produces the
// exported file bytes.
type Exporter interface {
	Export(ctx context.Context, source, template string) ([]byte, error)
	Templates() []string
}

// ContentHash addresses a source for caching.
func ContentHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
