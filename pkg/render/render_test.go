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

package render_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manuscript-team/manuscript/pkg/cache"
	"github.com/manuscript-team/manuscript/pkg/render"
)

func TestPlainRenderer(t *testing.T) {
	t.Run("valid source passes through test", func(t *testing.T) {
		r := &render.PlainRenderer{}
		artifact, err := r.Render(context.Background(), "\\section{intro}\nhello\n")
		require.NoError(t, err)
		assert.Equal(t, "text/plain", artifact.MIME)
		assert.Equal(t, "\\section{intro}\nhello\n", string(artifact.Data))
	})

	t.Run("unclosed brace is located test", func(t *testing.T) {
		r := &render.PlainRenderer{}
		_, err := r.Render(context.Background(), "fine\n\\section{intro\nmore\n")
		require.ErrorIs(t, err, render.ErrCompilationFailed)

		var compilation *render.CompilationError
		require.ErrorAs(t, err, &compilation)
		assert.Equal(t, 2, compilation.Line)
		assert.Equal(t, 9, compilation.Col)
	})

	t.Run("stray closing brace test", func(t *testing.T) {
		r := &render.PlainRenderer{}
		_, err := r.Render(context.Background(), "text}\n")

		var compilation *render.CompilationError
		require.ErrorAs(t, err, &compilation)
		assert.Equal(t, 1, compilation.Line)
		assert.Equal(t, 5, compilation.Col)
	})

	t.Run("escaped braces are ignored test", func(t *testing.T) {
		r := &render.PlainRenderer{}
		_, err := r.Render(context.Background(), "a \\{ literal \\} brace\n")
		assert.NoError(t, err)
	})

	t.Run("missing citation test", func(t *testing.T) {
		r := &render.PlainRenderer{
			Bibliography: map[string]struct{}{"smith2020": {}},
		}

		_, err := r.Render(context.Background(), "as shown \\cite{smith2020, doe2021}\n")
		require.ErrorIs(t, err, render.ErrMissingCitation)

		var missing *render.MissingCitationError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "doe2021", missing.Key)
	})

	t.Run("known citations pass test", func(t *testing.T) {
		r := &render.PlainRenderer{
			Bibliography: map[string]struct{}{"smith2020": {}},
		}
		_, err := r.Render(context.Background(), "\\cite{smith2020}\n")
		assert.NoError(t, err)
	})

	t.Run("cancelled context test", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := (&render.PlainRenderer{}).Render(ctx, "anything")
		assert.ErrorIs(t, err, render.ErrTimeout)
	})
}

type countingRenderer struct {
	inner render.Renderer
	calls int
}

func (c *countingRenderer) Render(ctx context.Context, source string) (*render.Artifact, error) {
	c.calls++
	return c.inner.Render(ctx, source)
}

func TestCachedRenderer(t *testing.T) {
	t.Run("repeated renders hit the cache test", func(t *testing.T) {
		renderCache, err := cache.NewRenderCache(1 << 20)
		require.NoError(t, err)
		backend := &countingRenderer{inner: &render.PlainRenderer{}}
		r := render.NewCachedRenderer(backend, renderCache)

		first, err := r.Render(context.Background(), "content")
		require.NoError(t, err)
		second, err := r.Render(context.Background(), "content")
		require.NoError(t, err)

		assert.Equal(t, 1, backend.calls)
		assert.Equal(t, first.MIME, second.MIME)
		assert.Equal(t, first.Data, second.Data)
	})

	t.Run("failures are not cached test", func(t *testing.T) {
		renderCache, err := cache.NewRenderCache(1 << 20)
		require.NoError(t, err)
		backend := &countingRenderer{inner: &render.PlainRenderer{}}
		r := render.NewCachedRenderer(backend, renderCache)

		_, err = r.Render(context.Background(), "broken {")
		require.Error(t, err)
		_, err = r.Render(context.Background(), "broken {")
		require.Error(t, err)

		assert.Equal(t, 2, backend.calls)
	})
}

func TestTemplateExporter(t *testing.T) {
	exporter := render.NewTemplateExporter()

	t.Run("plain template test", func(t *testing.T) {
		out, err := exporter.Export(context.Background(), "source % comment\n", "plain")
		require.NoError(t, err)
		assert.Equal(t, "source % comment\n", string(out))
	})

	t.Run("body-only strips comments test", func(t *testing.T) {
		source := "kept\nalso kept % trailing comment\n% whole line\nescaped 100\\% stays\n"
		out, err := exporter.Export(context.Background(), source, "body-only")
		require.NoError(t, err)
		assert.Equal(t, "kept\nalso kept \n\nescaped 100\\% stays\n", string(out))
	})

	t.Run("unknown template test", func(t *testing.T) {
		_, err := exporter.Export(context.Background(), "source", "docbook")
		assert.ErrorIs(t, err, render.ErrUnsupportedTemplate)
	})

	t.Run("template listing test", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"plain", "body-only"}, exporter.Templates())
	})
}

func TestContentHash(t *testing.T) {
	t.Run("stable and distinct test", func(t *testing.T) {
		assert.Equal(t, render.ContentHash("a"), render.ContentHash("a"))
		assert.NotEqual(t, render.ContentHash("a"), render.ContentHash("b"))
		assert.Len(t, render.ContentHash(""), 64)
	})
}
