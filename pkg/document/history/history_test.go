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

package history_test

import (
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manuscript-team/manuscript/pkg/document"
	"github.com/manuscript-team/manuscript/pkg/document/history"
)

const owner = document.Identity("alice")

func newHistory(t *testing.T, doc *document.Document) *history.History {
	t.Helper()
	return history.New(doc, history.Options{}, nil)
}

func TestTimeline(t *testing.T) {
	t.Run("snapshots mirror the change log test", func(t *testing.T) {
		doc := document.New("paper", owner)
		_, err := doc.Edit(0, 0, "first")
		require.NoError(t, err)
		_, err = doc.Edit(5, 5, " second")
		require.NoError(t, err)

		timeline, err := newHistory(t, doc).Timeline()
		require.NoError(t, err)
		require.Len(t, timeline.Snapshots, len(doc.Log()))

		for i, s := range timeline.Snapshots {
			assert.Equal(t, i+1, s.Seq)
			assert.Equal(t, doc.Log()[i].ID().Key(), s.ID)
		}
	})

	t.Run("first change starts a session test", func(t *testing.T) {
		doc := document.New("paper", owner)
		timeline, err := newHistory(t, doc).Timeline()
		require.NoError(t, err)

		require.NotEmpty(t, timeline.Snapshots)
		assert.Contains(t, timeline.Snapshots[0].Tags, history.TagSessionStart)
	})

	t.Run("large edits are tagged test", func(t *testing.T) {
		doc := document.New("paper", owner)
		_, err := doc.Edit(0, 0, "tiny")
		require.NoError(t, err)

		big := make([]byte, history.DefaultLargeEditBytes)
		for i := range big {
			big[i] = 'x'
		}
		_, err = doc.Edit(4, 4, string(big))
		require.NoError(t, err)

		timeline, err := newHistory(t, doc).Timeline()
		require.NoError(t, err)

		last := timeline.Snapshots[len(timeline.Snapshots)-1]
		assert.Contains(t, last.Tags, history.TagLargeEdit)
		assert.Equal(t, history.DefaultLargeEditBytes, last.BytesInserted)
	})

	t.Run("section changes are tagged test", func(t *testing.T) {
		doc := document.New("paper", owner)
		_, err := doc.Edit(0, 0, "plain text\n")
		require.NoError(t, err)
		_, err = doc.Edit(doc.Len(), doc.Len(), "\\section{results}\nnumbers\n")
		require.NoError(t, err)

		timeline, err := newHistory(t, doc).Timeline()
		require.NoError(t, err)

		last := timeline.Snapshots[len(timeline.Snapshots)-1]
		assert.Contains(t, last.Tags, history.TagSectionChange)
	})

	t.Run("collaborator's first change is tagged test", func(t *testing.T) {
		docA := document.New("paper", owner)
		_, err := docA.Edit(0, 0, "content\n")
		require.NoError(t, err)

		docB, err := document.Load(docA.Key(), owner, "bob", gotime.Now(), docA.Log())
		require.NoError(t, err)
		require.NoError(t, docB.AddCollaborator(owner, document.Collaborator{
			Identity:    "bob",
			Permissions: document.RoleAuthor.Permissions(),
		}))
		_, err = docB.Edit(0, 0, "bob was here\n")
		require.NoError(t, err)
		require.NoError(t, docA.Merge(docB))

		timeline, err := newHistory(t, docA).Timeline()
		require.NoError(t, err)

		last := timeline.Snapshots[len(timeline.Snapshots)-1]
		assert.Contains(t, last.Tags, history.TagCollaboratorJoined)
	})

	t.Run("manual checkpoints are tagged test", func(t *testing.T) {
		doc := document.New("paper", owner)
		_, err := doc.Edit(0, 0, "draft")
		require.NoError(t, err)
		require.NoError(t, doc.MarkCheckpoint("sent to advisor"))

		timeline, err := newHistory(t, doc).Timeline()
		require.NoError(t, err)

		last := timeline.Snapshots[len(timeline.Snapshots)-1]
		assert.Contains(t, last.Tags, history.TagManualCheckpoint)
		assert.Equal(t, "sent to advisor", last.Description)

		significant := timeline.Significant()
		require.NotEmpty(t, significant)
		assert.Equal(t, last.ID, significant[len(significant)-1].ID)
	})
}

func TestContentAt(t *testing.T) {
	t.Run("reconstructs intermediate states test", func(t *testing.T) {
		doc := document.New("paper", owner)
		_, err := doc.Edit(0, 0, "version one")
		require.NoError(t, err)
		log := doc.Log()
		atFirstEdit := log[len(log)-1].ID().Key()

		_, err = doc.Edit(8, 11, "two")
		require.NoError(t, err)

		view := newHistory(t, doc)
		content, err := view.ContentAt(atFirstEdit)
		require.NoError(t, err)
		assert.Equal(t, "version one", content)
		assert.Equal(t, "version two", doc.Source())
	})

	t.Run("unknown snapshot test", func(t *testing.T) {
		doc := document.New("paper", owner)
		_, err := newHistory(t, doc).ContentAt("missing:99")
		assert.ErrorIs(t, err, history.ErrSnapshotNotFound)
	})
}

func TestDiff(t *testing.T) {
	t.Run("hunks describe the byte changes test", func(t *testing.T) {
		doc := document.New("paper", owner)
		_, err := doc.Edit(0, 0, "the quick brown fox")
		require.NoError(t, err)
		log := doc.Log()
		from := log[len(log)-1].ID().Key()

		_, err = doc.Edit(4, 9, "slow")
		require.NoError(t, err)
		log = doc.Log()
		to := log[len(log)-1].ID().Key()

		hunks, err := newHistory(t, doc).Diff(from, to)
		require.NoError(t, err)
		require.Len(t, hunks, 1)

		assert.Equal(t, "quick", hunks[0].Removed)
		assert.Equal(t, "slow", hunks[0].Inserted)
		assert.Equal(t, doc.Actor().String(), hunks[0].Author)
	})

	t.Run("identical snapshots produce no hunks test", func(t *testing.T) {
		doc := document.New("paper", owner)
		_, err := doc.Edit(0, 0, "stable")
		require.NoError(t, err)
		log := doc.Log()
		id := log[len(log)-1].ID().Key()

		hunks, err := newHistory(t, doc).Diff(id, id)
		require.NoError(t, err)
		assert.Empty(t, hunks)
	})
}

func TestRestore(t *testing.T) {
	t.Run("restore brings back a prior state test", func(t *testing.T) {
		doc := document.New("paper", owner)
		_, err := doc.Edit(0, 0, "the good version")
		require.NoError(t, err)
		log := doc.Log()
		goodID := log[len(log)-1].ID().Key()

		_, err = doc.Edit(4, 8, "bad")
		require.NoError(t, err)
		assert.Equal(t, "the bad version", doc.Source())

		view := newHistory(t, doc)
		logLenBefore := len(doc.Log())
		require.NoError(t, view.Restore(goodID))

		assert.Equal(t, "the good version", doc.Source())
		// Restore appends; the log before it stays intact.
		assert.Equal(t, logLenBefore+1, len(doc.Log()))
	})

	t.Run("restore of current state is a no-op test", func(t *testing.T) {
		doc := document.New("paper", owner)
		_, err := doc.Edit(0, 0, "content")
		require.NoError(t, err)
		log := doc.Log()
		id := log[len(log)-1].ID().Key()

		before := len(doc.Log())
		require.NoError(t, newHistory(t, doc).Restore(id))
		assert.Equal(t, before, len(doc.Log()))
	})

	t.Run("section restore only rewrites the section test", func(t *testing.T) {
		doc := document.New("paper", owner)
		_, err := doc.Edit(0, 0, "\\section{intro}\nhello\n\\section{references}\n[1] the good list\n")
		require.NoError(t, err)
		log := doc.Log()
		goodID := log[len(log)-1].ID().Key()

		// Later edits touch both sections.
		source := doc.Source()
		_, err = doc.Edit(len(source), len(source), "[2] a stray entry\n")
		require.NoError(t, err)
		_, err = doc.Edit(16, 21, "goodbye")
		require.NoError(t, err)

		view := newHistory(t, doc)
		require.NoError(t, view.RestoreSection("references", goodID))

		assert.Equal(t, "\\section{intro}\ngoodbye\n\\section{references}\n[1] the good list\n", doc.Source())
	})

	t.Run("unknown section test", func(t *testing.T) {
		doc := document.New("paper", owner)
		_, err := doc.Edit(0, 0, "\\section{intro}\nhello\n")
		require.NoError(t, err)
		log := doc.Log()
		id := log[len(log)-1].ID().Key()

		err = newHistory(t, doc).RestoreSection("appendix", id)
		assert.ErrorIs(t, err, history.ErrSectionNotFound)
	})
}

func TestSections(t *testing.T) {
	t.Run("partition into byte ranges test", func(t *testing.T) {
		source := "preamble\n\\section{intro}\nhello\n\\section{results}\nnumbers\n"
		sections := history.Sections(source)

		require.Len(t, sections, 2)
		assert.Equal(t, "intro", sections[0].Hint)
		assert.Equal(t, "results", sections[1].Hint)
		assert.Equal(t, sections[1].From, sections[0].To)
		assert.Equal(t, len(source), sections[1].To)
		assert.Equal(t, "\\section{intro}\nhello\n", source[sections[0].From:sections[0].To])
	})

	t.Run("markdown headings test", func(t *testing.T) {
		sections := history.Sections("# One\ntext\n## Two\nmore\n")
		require.Len(t, sections, 2)
		assert.Equal(t, "One", sections[0].Hint)
		assert.Equal(t, "Two", sections[1].Hint)
	})

	t.Run("no headings test", func(t *testing.T) {
		assert.Empty(t, history.Sections("just prose, no structure"))
	})
}
