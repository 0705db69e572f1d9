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

package manuscript

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manuscript-team/manuscript/pkg/document"
	"github.com/manuscript-team/manuscript/pkg/document/key"
)

const owner = document.Identity("alice")

func newEngine(t *testing.T) *Engine {
	t.Helper()

	dir := t.TempDir()
	engine, err := New(&Config{
		StoragePath:     filepath.Join(dir, "docs"),
		InviteStorePath: filepath.Join(dir, "invites.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestConfig(t *testing.T) {
	t.Run("defaults fill omitted fields test", func(t *testing.T) {
		conf := &Config{}
		conf.EnsureDefaults()

		assert.Equal(t, "info", conf.LogLevel)
		assert.Equal(t, 1<<20, conf.ChunkThreshold)
		assert.Equal(t, 256<<10, conf.ChunkSize)
		assert.Equal(t, 16, conf.MaxResidentChunks)
		assert.Equal(t, 30*time.Second, conf.HistoryTTL)
		assert.Equal(t, filepath.Join(conf.StoragePath, "invites.db"), conf.InviteStorePath)
		require.NoError(t, conf.Validate())
	})

	t.Run("unknown log level is rejected test", func(t *testing.T) {
		conf := &Config{LogLevel: "verbose"}
		conf.EnsureDefaults()
		assert.Error(t, conf.Validate())
	})

	t.Run("bad seal key length is rejected test", func(t *testing.T) {
		conf := &Config{InviteSealKey: "too short"}
		conf.EnsureDefaults()
		assert.Error(t, conf.Validate())
	})
}

func TestEngineDocuments(t *testing.T) {
	t.Run("create persists and registers test", func(t *testing.T) {
		engine := newEngine(t)

		doc, err := engine.CreateDocument("paper", owner)
		require.NoError(t, err)

		same, err := engine.OpenDocument(doc.Key(), owner)
		require.NoError(t, err)
		assert.Same(t, doc, same)
	})

	t.Run("open survives close and reopen test", func(t *testing.T) {
		engine := newEngine(t)

		doc, err := engine.CreateDocument("paper", owner)
		require.NoError(t, err)
		_, err = doc.Edit(0, 0, "durable content")
		require.NoError(t, err)

		require.NoError(t, engine.CloseDocument(doc.Key()))
		reopened, err := engine.OpenDocument(doc.Key(), owner)
		require.NoError(t, err)
		assert.Equal(t, "durable content", reopened.Source())
	})

	t.Run("unknown document test", func(t *testing.T) {
		engine := newEngine(t)

		_, err := engine.OpenDocument(key.New(), owner)
		assert.ErrorIs(t, err, document.ErrNotFound)
		assert.ErrorIs(t, engine.CloseDocument(key.New()), document.ErrNotFound)
	})
}

func TestEngineSections(t *testing.T) {
	t.Run("section table of an open document test", func(t *testing.T) {
		engine := newEngine(t)

		doc, err := engine.CreateDocument("paper", owner)
		require.NoError(t, err)
		_, err = doc.Edit(0, 0, "\\section{intro}\nhello\n\\section{results}\nnumbers\n")
		require.NoError(t, err)

		sections, err := engine.Sections(doc.Key())
		require.NoError(t, err)
		require.Len(t, sections, 2)
		assert.Equal(t, "intro", sections[0].Hint)
		assert.Equal(t, "results", sections[1].Hint)
	})
}

func TestEngineChunks(t *testing.T) {
	t.Run("small body is a single chunk test", func(t *testing.T) {
		engine := newEngine(t)

		doc, err := engine.CreateDocument("paper", owner)
		require.NoError(t, err)
		_, err = doc.Edit(0, 0, "small body")
		require.NoError(t, err)

		store, err := engine.ChunkStore(doc.Key())
		require.NoError(t, err)

		content, err := store.ReadRange(context.Background(), 0, doc.Len())
		require.NoError(t, err)
		assert.Equal(t, "small body", content)
	})

	t.Run("large body reads through chunks test", func(t *testing.T) {
		dir := t.TempDir()
		engine, err := New(&Config{
			StoragePath:     filepath.Join(dir, "docs"),
			InviteStorePath: filepath.Join(dir, "invites.db"),
			ChunkThreshold:  16,
			ChunkSize:       8,
		})
		require.NoError(t, err)
		defer engine.Close()

		doc, err := engine.CreateDocument("paper", owner)
		require.NoError(t, err)
		body := "0123456789012345678901234567890123456789"
		_, err = doc.Edit(0, 0, body)
		require.NoError(t, err)

		store, err := engine.ChunkStore(doc.Key())
		require.NoError(t, err)

		content, err := store.ReadRange(context.Background(), 5, 29)
		require.NoError(t, err)
		assert.Equal(t, body[5:29], content)
	})
}

func TestEngineRendering(t *testing.T) {
	t.Run("render and export test", func(t *testing.T) {
		engine := newEngine(t)

		doc, err := engine.CreateDocument("paper", owner)
		require.NoError(t, err)
		_, err = doc.Edit(0, 0, "body % draft note\n")
		require.NoError(t, err)

		artifact, err := engine.RenderDocument(context.Background(), doc.Key())
		require.NoError(t, err)
		assert.Equal(t, "text/plain", artifact.MIME)

		exported, err := engine.ExportDocument(context.Background(), doc.Key(), "body-only")
		require.NoError(t, err)
		assert.Equal(t, "body \n", string(exported))
	})
}

func TestEngineHistory(t *testing.T) {
	t.Run("timeline of an open document test", func(t *testing.T) {
		engine := newEngine(t)

		doc, err := engine.CreateDocument("paper", owner)
		require.NoError(t, err)
		_, err = doc.Edit(0, 0, "first draft")
		require.NoError(t, err)

		view, err := engine.History(doc.Key())
		require.NoError(t, err)
		timeline, err := view.Timeline()
		require.NoError(t, err)
		assert.Equal(t, len(doc.Log()), len(timeline.Snapshots))
	})
}

func TestEngineInvitations(t *testing.T) {
	t.Run("accepted invitation admits a collaborator test", func(t *testing.T) {
		engine := newEngine(t)

		doc, err := engine.CreateDocument("paper", owner)
		require.NoError(t, err)
		_, err = doc.Edit(0, 0, "shared work")
		require.NoError(t, err)

		invitation, err := engine.Invites().CreateInvitation(doc.Key(), owner, "bob", document.RoleAuthor, 0)
		require.NoError(t, err)

		admitted, err := engine.AcceptInvitation(invitation.ID, "bob", "")
		require.NoError(t, err)
		assert.Same(t, doc, admitted)

		_, err = admitted.Edit(admitted.Len(), admitted.Len(), " with bob")
		require.NoError(t, err)
		assert.Equal(t, "shared work with bob", admitted.Source())
	})

	t.Run("redeemed link admits a collaborator test", func(t *testing.T) {
		engine := newEngine(t)

		doc, err := engine.CreateDocument("paper", owner)
		require.NoError(t, err)

		link, err := engine.Invites().CreateSecureLink(doc.Key(), owner, document.RoleReviewer, "", 0, 0)
		require.NoError(t, err)

		admitted, err := engine.RedeemLink(link.Token, "carol", "")
		require.NoError(t, err)
		require.Len(t, admitted.Metadata().Collaborators, 2)

		// A reviewer reads but does not write.
		_, err = admitted.Edit(0, 0, "not allowed")
		assert.ErrorIs(t, err, document.ErrReadOnly)
	})
}
