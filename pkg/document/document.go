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

// Package document provides the replicated document model. A document is a
// conflict-free replicated data type: replicas that have received the same
// set of changes, in any order and with any duplication, hold byte-identical
// content.
package document

import (
	"fmt"
	"sort"
	"sync"
	gotime "time"

	"github.com/manuscript-team/manuscript/pkg/document/change"
	"github.com/manuscript-team/manuscript/pkg/document/crdt"
	"github.com/manuscript-team/manuscript/pkg/document/key"
	"github.com/manuscript-team/manuscript/pkg/document/operations"
	"github.com/manuscript-team/manuscript/pkg/document/time"
)

// ChangeSet is the byte-level summary of a single edit: the replaced range
// and the inserted text. It is what the history and sync layers consume.
type ChangeSet struct {
	// From and To are the replaced byte range.
	From int
	To   int

	// Inserted is the text that replaced the range. Empty for deletion.
	Inserted string
}

// Metadata is a point-in-time view of the document's non-body state.
type Metadata struct {
	Key           key.Key
	Title         string
	Owner         Identity
	CreatedAt     gotime.Time
	UpdatedAt     gotime.Time
	Collaborators []Collaborator
}

// Document is a single replica of a collaborative document. Reads may
// proceed concurrently; edits, merges and other mutations serialize on the
// replica's write lock. There is no lock shared between documents.
type Document struct {
	mu sync.RWMutex

	key           key.Key
	owner         Identity
	localIdentity Identity
	createdAt     gotime.Time
	updatedAt     gotime.Time

	root     *crdt.Root
	changeID change.ID

	// vector tracks, per actor, the highest contiguous sequence applied.
	vector change.Vector

	// log is the append-only list of applied changes in application order.
	// It is the only source of truth; history, diff and restore are derived
	// from it.
	log []*change.Change

	// pending buffers out-of-order remote changes per actor until their
	// predecessors arrive.
	pending map[string][]*change.Change

	// localChanges are changes made locally since the last flush, used to
	// decide whether the replica is dirty.
	localChanges []*change.Change

	collaborators []*Collaborator
	comments      []*Comment

	events chan Event
}

// New creates a new document owned by the given identity. The local replica
// acts on behalf of the owner until SetLocalIdentity is called.
func New(title string, owner Identity) *Document {
	d := &Document{
		key:           key.New(),
		owner:         owner,
		localIdentity: owner,
		createdAt:     gotime.Now(),
		updatedAt:     gotime.Now(),
		root:          crdt.NewRoot(),
		changeID:      change.InitialID.SetActor(time.NewActorID()),
		vector:        change.NewVector(),
		pending:       make(map[string][]*change.Change),
		events:        make(chan Event, eventBufferSize),
	}

	d.collaborators = append(d.collaborators, &Collaborator{
		Identity:    owner,
		Permissions: PermView | PermComment | PermEdit | PermShare | PermAdmin,
		AddedBy:     owner,
		AddedAt:     d.createdAt,
	})

	if title != "" {
		ctx := change.NewContext(d.changeID.Next(), "create document")
		ctx.Push(operations.NewSetTitle(title, ctx.IssueTimeTicket()))
		c := ctx.ToChange()
		if err := c.Execute(d.root); err != nil {
			// SetTitle on a fresh root cannot fail.
			panic(err)
		}
		d.record(ctx.ID(), c)
	}

	return d
}

// Load reconstructs a replica from a previously serialized change log. The
// replica gets a fresh actor so its next edits do not collide with the ones
// that produced the log.
func Load(
	k key.Key,
	owner, localIdentity Identity,
	createdAt gotime.Time,
	changes []*change.Change,
) (*Document, error) {
	d := &Document{
		key:           k,
		owner:         owner,
		localIdentity: localIdentity,
		createdAt:     createdAt,
		updatedAt:     createdAt,
		root:          crdt.NewRoot(),
		changeID:      change.InitialID.SetActor(time.NewActorID()),
		vector:        change.NewVector(),
		pending:       make(map[string][]*change.Change),
		events:        make(chan Event, eventBufferSize),
	}

	d.collaborators = append(d.collaborators, &Collaborator{
		Identity:    owner,
		Permissions: PermView | PermComment | PermEdit | PermShare | PermAdmin,
		AddedBy:     owner,
		AddedAt:     createdAt,
	})

	for _, c := range changes {
		if err := c.Execute(d.root); err != nil {
			return nil, fmt.Errorf("replay change %s: %w", c.ID().Key(), ErrInvalidFormat)
		}
		d.log = append(d.log, c)
		d.vector.Forward(c.ID().Actor().String(), c.ID().ClientSeq())
		d.changeID = d.changeID.SyncLamport(c.ID().Lamport())
		if !c.CreatedAt().IsZero() && c.CreatedAt().After(d.updatedAt) {
			d.updatedAt = c.CreatedAt()
		}
	}

	return d, nil
}

// Key returns the key of this document.
func (d *Document) Key() key.Key {
	return d.key
}

// Owner returns the owning identity of this document.
func (d *Document) Owner() Identity {
	return d.owner
}

// Actor returns the actor ID of this replica.
func (d *Document) Actor() *time.ActorID {
	return d.changeID.Actor()
}

// SetLocalIdentity binds the identity operating this replica. Permission
// checks on mutating operations are made against it.
func (d *Document) SetLocalIdentity(identity Identity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.localIdentity = identity
}

// Source returns the current text body.
func (d *Document) Source() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root.Body().String()
}

// Len returns the byte length of the current text body.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root.Body().Len()
}

// Title returns the current title.
func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root.Title().Value()
}

// Metadata returns a point-in-time view of the document's metadata.
func (d *Document) Metadata() Metadata {
	d.mu.RLock()
	defer d.mu.RUnlock()

	collaborators := make([]Collaborator, len(d.collaborators))
	for i, c := range d.collaborators {
		collaborators[i] = *c
	}

	return Metadata{
		Key:           d.key,
		Title:         d.root.Title().Value(),
		Owner:         d.owner,
		CreatedAt:     d.createdAt,
		UpdatedAt:     d.updatedAt,
		Collaborators: collaborators,
	}
}

// Edit replaces the byte range [from, to) with the given content. Any range
// within current bounds is valid; empty content deletes. Every edit appends
// exactly one entry to the change log.
func (d *Document) Edit(from, to int, content string) (ChangeSet, error) {
	return d.EditWithMessage(from, to, content, "")
}

// EditWithMessage is Edit with a human-readable description attached to the
// resulting change, surfaced later in history.
func (d *Document) EditWithMessage(from, to int, content, message string) (ChangeSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.permissionsOf(d.localIdentity).Has(PermEdit) {
		return ChangeSet{}, ErrReadOnly
	}
	if from < 0 || to < from || to > d.root.Body().Len() {
		return ChangeSet{}, fmt.Errorf("edit range [%d,%d): %w", from, to, crdt.ErrIndexOutOfBounds)
	}

	ctx := change.NewContext(d.changeID.Next(), message)
	ticket := ctx.IssueTimeTicket()

	fromPos, toPos, err := d.root.Body().CreateRange(from, to)
	if err != nil {
		return ChangeSet{}, err
	}

	maxCreatedAtMap, err := d.root.Body().Edit(fromPos, toPos, nil, content, ticket)
	if err != nil {
		return ChangeSet{}, err
	}

	ctx.Push(operations.NewEdit(fromPos, toPos, maxCreatedAtMap, content, ticket))
	d.record(ctx.ID(), ctx.ToChange())
	d.publish(DocumentChanged, d.changeID.Actor().String())

	return ChangeSet{From: from, To: to, Inserted: content}, nil
}

// SetTitle writes the document title.
func (d *Document) SetTitle(title string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.permissionsOf(d.localIdentity).Has(PermEdit) {
		return ErrReadOnly
	}

	ctx := change.NewContext(d.changeID.Next(), "set title")
	ctx.Push(operations.NewSetTitle(title, ctx.IssueTimeTicket()))
	c := ctx.ToChange()
	if err := c.Execute(d.root); err != nil {
		return err
	}
	d.record(ctx.ID(), c)
	d.publish(DocumentChanged, d.changeID.Actor().String())

	return nil
}

// MarkCheckpoint appends a change that carries only a description and no
// operations. It does not modify content; history surfaces it as a manual
// checkpoint.
func (d *Document) MarkCheckpoint(description string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.permissionsOf(d.localIdentity).Has(PermEdit) {
		return ErrReadOnly
	}

	ctx := change.NewContext(d.changeID.Next(), description)
	d.record(ctx.ID(), ctx.ToChange())
	d.publish(DocumentChanged, d.changeID.Actor().String())
	return nil
}

// record appends a locally executed change to the log and advances the
// replica's clocks. The caller holds the write lock.
func (d *Document) record(id change.ID, c *change.Change) {
	d.changeID = id
	d.log = append(d.log, c)
	d.localChanges = append(d.localChanges, c)
	d.vector.Forward(id.Actor().String(), id.ClientSeq())
	d.updatedAt = gotime.Now()
}

// HasLocalChanges returns whether this replica holds changes not yet flushed.
func (d *Document) HasLocalChanges() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.localChanges) > 0
}

// FlushLocalChanges returns the unflushed local changes and clears the dirty
// marker. The full log stays intact for sync and history.
func (d *Document) FlushLocalChanges() []*change.Change {
	d.mu.Lock()
	defer d.mu.Unlock()

	flushed := d.localChanges
	d.localChanges = nil
	return flushed
}

// Vector returns a copy of the replica's applied version vector.
func (d *Document) Vector() change.Vector {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.vector.DeepCopy()
}

// Log returns the applied changes in application order.
func (d *Document) Log() []*change.Change {
	d.mu.RLock()
	defer d.mu.RUnlock()

	log := make([]*change.Change, len(d.log))
	copy(log, d.log)
	return log
}

// ChangesSince returns the applied changes not covered by the given vector,
// in application order. Per-actor sequence order is preserved.
func (d *Document) ChangesSince(vector change.Vector) []*change.Change {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var changes []*change.Change
	for _, c := range d.log {
		if !vector.Covers(c.ID()) {
			changes = append(changes, c)
		}
	}
	return changes
}

// CreatePack builds a change pack for a peer that has acknowledged the given
// vector. A nil vector packs the full log.
func (d *Document) CreatePack(acked change.Vector) *change.Pack {
	if acked == nil {
		acked = change.NewVector()
	}
	return change.NewPack(d.key, d.Vector(), d.ChangesSince(acked))
}

// ApplyChangePack merges the given pack into this replica. The merge is
// idempotent and commutative: already-covered changes are skipped and
// out-of-order changes are buffered until their predecessors arrive. A
// failed merge leaves the replica exactly as it was.
func (d *Document) ApplyChangePack(pack *change.Pack) error {
	if pack.DocumentKey != d.key {
		return fmt.Errorf("pack for %s applied to %s: %w", pack.DocumentKey, d.key, ErrNotFound)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	logLen := len(d.log)
	vectorBefore := d.vector.DeepCopy()
	changeIDBefore := d.changeID
	pendingBefore := make(map[string][]*change.Change, len(d.pending))
	for actor, queue := range d.pending {
		pendingBefore[actor] = append([]*change.Change(nil), queue...)
	}

	for _, c := range pack.Changes {
		if d.vector.Covers(c.ID()) || d.isPending(c.ID()) {
			continue
		}
		d.enqueue(c)
	}

	applied, err := d.drainPending()
	if err != nil {
		// Roll the replica back to its pre-merge state. The root is rebuilt
		// by replaying the untouched prefix of the log; the pending buffer
		// goes back to its pre-merge content, changes drained before the
		// failure included.
		root := crdt.NewRoot()
		for _, c := range d.log[:logLen] {
			if replayErr := c.Execute(root); replayErr != nil {
				return fmt.Errorf("rollback replay: %v: %w", replayErr, err)
			}
		}
		d.root = root
		d.log = d.log[:logLen]
		d.vector = vectorBefore
		d.changeID = changeIDBefore
		d.pending = pendingBefore
		return err
	}

	if applied > 0 {
		d.updatedAt = gotime.Now()
		d.publish(DocumentChanged, "")
	}

	return nil
}

// Merge unions another replica of the same document into this one. It is
// used to reconcile two local copies, e.g. after reopening a document that
// was edited on disk while a copy was open.
func (d *Document) Merge(other *Document) error {
	return d.ApplyChangePack(other.CreatePack(nil))
}

func (d *Document) isPending(id change.ID) bool {
	for _, c := range d.pending[id.Actor().String()] {
		if c.ID().ClientSeq() == id.ClientSeq() {
			return true
		}
	}
	return false
}

func (d *Document) enqueue(c *change.Change) {
	actor := c.ID().Actor().String()
	queue := d.pending[actor]
	idx := sort.Search(len(queue), func(i int) bool {
		return queue[i].ID().ClientSeq() > c.ID().ClientSeq()
	})
	queue = append(queue, nil)
	copy(queue[idx+1:], queue[idx:])
	queue[idx] = c
	d.pending[actor] = queue
}

// drainPending applies every buffered change whose predecessors have been
// applied, in a deterministic actor order, until no progress can be made.
func (d *Document) drainPending() (int, error) {
	applied := 0
	for {
		actors := make([]string, 0, len(d.pending))
		for actor := range d.pending {
			actors = append(actors, actor)
		}
		sort.Strings(actors)

		progress := false
		for _, actor := range actors {
			queue := d.pending[actor]
			for len(queue) > 0 && queue[0].ID().ClientSeq() == d.vector.Seq(actor)+1 {
				c := queue[0]
				if err := c.Execute(d.root); err != nil {
					return applied, fmt.Errorf("execute change %s: %w", c.ID().Key(), err)
				}
				queue = queue[1:]
				d.log = append(d.log, c)
				d.vector.Forward(actor, c.ID().ClientSeq())
				d.changeID = d.changeID.SyncLamport(c.ID().Lamport())
				applied++
				progress = true
			}
			if len(queue) == 0 {
				delete(d.pending, actor)
			} else {
				d.pending[actor] = queue
			}
		}

		if !progress {
			return applied, nil
		}
	}
}

// AddComment anchors a new comment to the byte range [from, to).
func (d *Document) AddComment(author Identity, from, to int, body string) (*Comment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.permissionsOf(author).Has(PermComment) {
		return nil, ErrReadOnly
	}
	source := d.root.Body().String()
	if from < 0 || to < from || to > len(source) {
		return nil, fmt.Errorf("comment range [%d,%d): %w", from, to, crdt.ErrIndexOutOfBounds)
	}

	comment := newComment(author, from, to, source[from:to], body)
	d.comments = append(d.comments, comment)
	return comment, nil
}

// ReplyToComment appends a reply to the given comment thread.
func (d *Document) ReplyToComment(commentID string, author Identity, body string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.permissionsOf(author).Has(PermComment) {
		return ErrReadOnly
	}

	comment := d.findComment(commentID)
	if comment == nil {
		return ErrCommentNotFound
	}
	comment.Replies = append(comment.Replies, Reply{
		Author:    author,
		CreatedAt: gotime.Now(),
		Body:      body,
	})
	return nil
}

// ResolveComment marks the given comment thread as resolved.
func (d *Document) ResolveComment(commentID string, author Identity) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.permissionsOf(author).Has(PermComment) {
		return ErrReadOnly
	}

	comment := d.findComment(commentID)
	if comment == nil {
		return ErrCommentNotFound
	}
	comment.Resolved = true
	return nil
}

// Comments returns the comment threads of this document.
func (d *Document) Comments() []*Comment {
	d.mu.RLock()
	defer d.mu.RUnlock()

	comments := make([]*Comment, len(d.comments))
	copy(comments, d.comments)
	return comments
}

// StaleComments returns the unresolved comments whose anchored range no
// longer covers the text they were written on.
func (d *Document) StaleComments() []*Comment {
	d.mu.RLock()
	defer d.mu.RUnlock()

	source := d.root.Body().String()
	var stale []*Comment
	for _, c := range d.comments {
		if !c.Resolved && c.StaleAgainst(source) {
			stale = append(stale, c)
		}
	}
	return stale
}

func (d *Document) findComment(id string) *Comment {
	for _, c := range d.comments {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// AddCollaborator grants the given collaborator access. The acting identity
// needs the share permission.
func (d *Document) AddCollaborator(acting Identity, collaborator Collaborator) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.permissionsOf(acting).Has(PermShare) {
		return ErrReadOnly
	}
	for _, c := range d.collaborators {
		if c.Identity == collaborator.Identity {
			return ErrCollaboratorExists
		}
	}

	collaborator.AddedBy = acting
	if collaborator.AddedAt.IsZero() {
		collaborator.AddedAt = gotime.Now()
	}
	d.collaborators = append(d.collaborators, &collaborator)
	d.publish(PresenceChanged, "")
	return nil
}

// RemoveCollaborator revokes the identity's access. The acting identity
// needs the admin permission. The owner cannot be removed.
func (d *Document) RemoveCollaborator(acting Identity, identity Identity) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.permissionsOf(acting).Has(PermAdmin) {
		return ErrReadOnly
	}
	if identity == d.owner {
		return ErrReadOnly
	}

	for i, c := range d.collaborators {
		if c.Identity == identity {
			d.collaborators = append(d.collaborators[:i], d.collaborators[i+1:]...)
			d.publish(PresenceChanged, "")
			return nil
		}
	}
	return ErrCollaboratorNotFound
}

// PermissionsOf returns the permission set of the given identity.
func (d *Document) PermissionsOf(identity Identity) Permission {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.permissionsOf(identity)
}

func (d *Document) permissionsOf(identity Identity) Permission {
	for _, c := range d.collaborators {
		if c.Identity == identity {
			return c.Permissions
		}
	}
	return 0
}
