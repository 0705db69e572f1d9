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

package document_test

import (
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manuscript-team/manuscript/pkg/document"
	"github.com/manuscript-team/manuscript/pkg/document/change"
	"github.com/manuscript-team/manuscript/pkg/document/crdt"
)

const (
	alice = document.Identity("alice")
	bob   = document.Identity("bob")
)

// replicaOf loads a second replica of the document and grants the identity
// co-author access so it can edit.
func replicaOf(t *testing.T, doc *document.Document, identity document.Identity) *document.Document {
	t.Helper()

	replica, err := document.Load(doc.Key(), doc.Owner(), identity, gotime.Now(), doc.Log())
	require.NoError(t, err)
	require.NoError(t, replica.AddCollaborator(doc.Owner(), document.Collaborator{
		Identity:    identity,
		Permissions: document.RoleCoAuthor.Permissions(),
	}))
	return replica
}

func TestDocument(t *testing.T) {
	t.Run("create and edit test", func(t *testing.T) {
		doc := document.New("My Paper", alice)
		assert.Equal(t, "My Paper", doc.Title())
		assert.Equal(t, "", doc.Source())

		cs, err := doc.Edit(0, 0, "Hello world")
		require.NoError(t, err)
		assert.Equal(t, document.ChangeSet{From: 0, To: 0, Inserted: "Hello world"}, cs)
		assert.Equal(t, "Hello world", doc.Source())

		_, err = doc.Edit(5, 11, " there")
		require.NoError(t, err)
		assert.Equal(t, "Hello there", doc.Source())

		_, err = doc.Edit(0, 5, "")
		require.NoError(t, err)
		assert.Equal(t, " there", doc.Source())
	})

	t.Run("edit out of bounds test", func(t *testing.T) {
		doc := document.New("paper", alice)
		_, err := doc.Edit(0, 0, "short")
		require.NoError(t, err)

		_, err = doc.Edit(3, 10, "x")
		assert.ErrorIs(t, err, crdt.ErrIndexOutOfBounds)
		_, err = doc.Edit(-1, 2, "x")
		assert.ErrorIs(t, err, crdt.ErrIndexOutOfBounds)
		_, err = doc.Edit(4, 2, "x")
		assert.ErrorIs(t, err, crdt.ErrIndexOutOfBounds)
	})

	t.Run("read-only identity test", func(t *testing.T) {
		doc := document.New("paper", alice)
		doc.SetLocalIdentity("stranger")

		_, err := doc.Edit(0, 0, "nope")
		assert.ErrorIs(t, err, document.ErrReadOnly)
		assert.ErrorIs(t, doc.SetTitle("nope"), document.ErrReadOnly)
	})

	t.Run("every edit appends one log entry test", func(t *testing.T) {
		doc := document.New("paper", alice)
		before := len(doc.Log())

		_, err := doc.Edit(0, 0, "one")
		require.NoError(t, err)
		_, err = doc.Edit(3, 3, " two")
		require.NoError(t, err)

		assert.Equal(t, before+2, len(doc.Log()))
	})

	t.Run("local change tracking test", func(t *testing.T) {
		doc := document.New("paper", alice)
		assert.True(t, doc.HasLocalChanges())

		flushed := doc.FlushLocalChanges()
		assert.NotEmpty(t, flushed)
		assert.False(t, doc.HasLocalChanges())

		_, err := doc.Edit(0, 0, "x")
		require.NoError(t, err)
		assert.True(t, doc.HasLocalChanges())
	})
}

func TestMerge(t *testing.T) {
	t.Run("offline edits converge test", func(t *testing.T) {
		docA := document.New("paper", alice)
		_, err := docA.Edit(0, 0, "Initial content\n")
		require.NoError(t, err)

		docB := replicaOf(t, docA, bob)

		// A appends two paragraphs while B, offline, prepends a header.
		_, err = docA.Edit(docA.Len(), docA.Len(), "A adds a paragraph.\n")
		require.NoError(t, err)
		_, err = docA.Edit(docA.Len(), docA.Len(), "A adds another.\n")
		require.NoError(t, err)
		_, err = docB.Edit(0, 0, "# Shared Header\n")
		require.NoError(t, err)

		require.NoError(t, docA.Merge(docB))
		require.NoError(t, docB.Merge(docA))

		assert.Equal(t, docA.Source(), docB.Source())
		assert.Contains(t, docA.Source(), "Initial content\n")
		assert.Contains(t, docA.Source(), "# Shared Header\n")
		assert.Contains(t, docA.Source(), "A adds a paragraph.\nA adds another.\n")
	})

	t.Run("concurrent edits at same position converge test", func(t *testing.T) {
		docA := document.New("paper", alice)
		_, err := docA.Edit(0, 0, "base")
		require.NoError(t, err)

		docB := replicaOf(t, docA, bob)

		_, err = docA.Edit(0, 0, "A")
		require.NoError(t, err)
		_, err = docB.Edit(0, 0, "B")
		require.NoError(t, err)

		require.NoError(t, docA.Merge(docB))
		require.NoError(t, docB.Merge(docA))
		assert.Equal(t, docA.Source(), docB.Source())
	})

	t.Run("overlapping delete and insert converge test", func(t *testing.T) {
		docA := document.New("paper", alice)
		_, err := docA.Edit(0, 0, "delete this sentence")
		require.NoError(t, err)

		docB := replicaOf(t, docA, bob)

		_, err = docA.Edit(0, 11, "")
		require.NoError(t, err)
		_, err = docB.Edit(7, 7, "exactly ")
		require.NoError(t, err)

		require.NoError(t, docA.Merge(docB))
		require.NoError(t, docB.Merge(docA))
		assert.Equal(t, docA.Source(), docB.Source())
	})

	t.Run("merge is idempotent test", func(t *testing.T) {
		docA := document.New("paper", alice)
		_, err := docA.Edit(0, 0, "content")
		require.NoError(t, err)

		docB := replicaOf(t, docA, bob)
		_, err = docB.Edit(7, 7, " more")
		require.NoError(t, err)

		pack := docB.CreatePack(nil)
		require.NoError(t, docA.ApplyChangePack(pack))
		source := docA.Source()
		logLen := len(docA.Log())

		require.NoError(t, docA.ApplyChangePack(pack))
		assert.Equal(t, source, docA.Source())
		assert.Equal(t, logLen, len(docA.Log()))
	})

	t.Run("merge is commutative test", func(t *testing.T) {
		base := document.New("paper", alice)
		_, err := base.Edit(0, 0, "base text\n")
		require.NoError(t, err)

		docB := replicaOf(t, base, bob)
		docC := replicaOf(t, base, "carol")

		_, err = docB.Edit(0, 0, "B first\n")
		require.NoError(t, err)
		_, err = docC.Edit(docC.Len(), docC.Len(), "C last\n")
		require.NoError(t, err)

		packB := docB.CreatePack(nil)
		packC := docC.CreatePack(nil)

		one, err := document.Load(base.Key(), alice, alice, gotime.Now(), base.Log())
		require.NoError(t, err)
		other, err := document.Load(base.Key(), alice, alice, gotime.Now(), base.Log())
		require.NoError(t, err)

		require.NoError(t, one.ApplyChangePack(packB))
		require.NoError(t, one.ApplyChangePack(packC))
		require.NoError(t, other.ApplyChangePack(packC))
		require.NoError(t, other.ApplyChangePack(packB))

		assert.Equal(t, one.Source(), other.Source())
	})

	t.Run("out of order changes are buffered test", func(t *testing.T) {
		docA := document.New("paper", alice)
		_, err := docA.Edit(0, 0, "one")
		require.NoError(t, err)
		_, err = docA.Edit(3, 3, " two")
		require.NoError(t, err)
		_, err = docA.Edit(7, 7, " three")
		require.NoError(t, err)

		log := docA.Log()
		docB, err := document.Load(docA.Key(), alice, bob, gotime.Now(), nil)
		require.NoError(t, err)

		// The tail arrives first and must wait for its predecessors.
		tail := change.NewPack(docA.Key(), nil, log[len(log)-1:])
		require.NoError(t, docB.ApplyChangePack(tail))
		assert.Equal(t, "", docB.Source())

		head := change.NewPack(docA.Key(), nil, log[:len(log)-1])
		require.NoError(t, docB.ApplyChangePack(head))
		assert.Equal(t, docA.Source(), docB.Source())
		assert.Equal(t, len(log), len(docB.Log()))
	})

	t.Run("failed merge keeps buffered changes test", func(t *testing.T) {
		docA := document.New("paper", alice)
		_, err := docA.Edit(0, 0, "base\n")
		require.NoError(t, err)

		// C forks here and does not see A's second edit directly.
		docC, err := document.Load(docA.Key(), alice, alice, gotime.Now(), docA.Log())
		require.NoError(t, err)
		require.NoError(t, docC.AddCollaborator(alice, document.Collaborator{
			Identity:    bob,
			Permissions: document.RoleCoAuthor.Permissions(),
		}))

		_, err = docA.Edit(5, 5, "extended by alice\n")
		require.NoError(t, err)

		// B's first edit rewrites part of A's second one, B's last appends.
		docB := replicaOf(t, docA, bob)
		_, err = docB.Edit(10, 12, "XX")
		require.NoError(t, err)
		_, err = docB.Edit(docB.Len(), docB.Len(), "tail\n")
		require.NoError(t, err)

		bobChanges := docB.ChangesSince(docA.Vector())
		require.Len(t, bobChanges, 2)

		// The tail arrives first and is buffered.
		require.NoError(t, docC.ApplyChangePack(change.NewPack(docC.Key(), nil, bobChanges[1:])))
		assert.Equal(t, "base\n", docC.Source())

		// The head touches content C does not hold yet; the merge fails and
		// must leave the replica, buffered tail included, exactly as it was.
		headPack := change.NewPack(docC.Key(), nil, bobChanges[:1])
		require.Error(t, docC.ApplyChangePack(headPack))
		assert.Equal(t, "base\n", docC.Source())

		// Once A's edit arrives, redelivering the head drains the tail too.
		require.NoError(t, docC.Merge(docA))
		require.NoError(t, docC.ApplyChangePack(headPack))
		assert.Equal(t, docB.Source(), docC.Source())
	})

	t.Run("pack for wrong document is rejected test", func(t *testing.T) {
		docA := document.New("paper", alice)
		docB := document.New("other", alice)

		err := docA.ApplyChangePack(docB.CreatePack(nil))
		assert.ErrorIs(t, err, document.ErrNotFound)
	})

	t.Run("sync message skips acknowledged changes test", func(t *testing.T) {
		docA := document.New("paper", alice)
		_, err := docA.Edit(0, 0, "content")
		require.NoError(t, err)

		acked := docA.Vector()
		assert.Empty(t, docA.ChangesSince(acked))

		_, err = docA.Edit(7, 7, "!")
		require.NoError(t, err)
		assert.Len(t, docA.ChangesSince(acked), 1)
	})
}

func TestCollaborators(t *testing.T) {
	t.Run("add and remove test", func(t *testing.T) {
		doc := document.New("paper", alice)

		require.NoError(t, doc.AddCollaborator(alice, document.Collaborator{
			Identity:    bob,
			Permissions: document.RoleReviewer.Permissions(),
		}))
		assert.True(t, doc.PermissionsOf(bob).Has(document.PermComment))
		assert.False(t, doc.PermissionsOf(bob).Has(document.PermEdit))

		err := doc.AddCollaborator(alice, document.Collaborator{Identity: bob})
		assert.ErrorIs(t, err, document.ErrCollaboratorExists)

		require.NoError(t, doc.RemoveCollaborator(alice, bob))
		assert.Equal(t, document.Permission(0), doc.PermissionsOf(bob))
		assert.ErrorIs(t, doc.RemoveCollaborator(alice, bob), document.ErrCollaboratorNotFound)
	})

	t.Run("owner cannot be removed test", func(t *testing.T) {
		doc := document.New("paper", alice)
		assert.ErrorIs(t, doc.RemoveCollaborator(alice, alice), document.ErrReadOnly)
	})

	t.Run("share requires permission test", func(t *testing.T) {
		doc := document.New("paper", alice)
		require.NoError(t, doc.AddCollaborator(alice, document.Collaborator{
			Identity:    bob,
			Permissions: document.RoleAuthor.Permissions(),
		}))

		err := doc.AddCollaborator(bob, document.Collaborator{Identity: "carol"})
		assert.ErrorIs(t, err, document.ErrReadOnly)
	})
}

func TestComments(t *testing.T) {
	t.Run("comment lifecycle test", func(t *testing.T) {
		doc := document.New("paper", alice)
		_, err := doc.Edit(0, 0, "a sentence to discuss")
		require.NoError(t, err)

		comment, err := doc.AddComment(alice, 2, 10, "unclear")
		require.NoError(t, err)

		require.NoError(t, doc.ReplyToComment(comment.ID, alice, "will fix"))
		require.NoError(t, doc.ResolveComment(comment.ID, alice))

		comments := doc.Comments()
		require.Len(t, comments, 1)
		assert.True(t, comments[0].Resolved)
		assert.Len(t, comments[0].Replies, 1)

		assert.ErrorIs(t, doc.ReplyToComment("missing", alice, "x"), document.ErrCommentNotFound)
	})

	t.Run("comments go stale when anchor text changes test", func(t *testing.T) {
		doc := document.New("paper", alice)
		_, err := doc.Edit(0, 0, "the quick brown fox")
		require.NoError(t, err)

		_, err = doc.AddComment(alice, 4, 9, "why quick?")
		require.NoError(t, err)
		assert.Empty(t, doc.StaleComments())

		_, err = doc.Edit(4, 9, "slow!")
		require.NoError(t, err)
		assert.Len(t, doc.StaleComments(), 1)
	})
}

func TestCheckpoint(t *testing.T) {
	t.Run("checkpoint appends an empty change test", func(t *testing.T) {
		doc := document.New("paper", alice)
		before := len(doc.Log())

		require.NoError(t, doc.MarkCheckpoint("submitted draft"))
		log := doc.Log()
		require.Len(t, log, before+1)
		assert.Equal(t, "submitted draft", log[len(log)-1].Message())
		assert.Empty(t, log[len(log)-1].Operations())
	})

	t.Run("checkpoint publishes a change event test", func(t *testing.T) {
		doc := document.New("paper", alice)

		drained := false
		for !drained {
			select {
			case <-doc.Events():
			default:
				drained = true
			}
		}

		require.NoError(t, doc.MarkCheckpoint("milestone"))

		select {
		case event := <-doc.Events():
			assert.Equal(t, document.DocumentChanged, event.Type)
		default:
			t.Fatal("no event published for the checkpoint")
		}
	})
}
