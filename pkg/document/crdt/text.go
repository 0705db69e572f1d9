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

package crdt

import (
	"errors"

	"github.com/manuscript-team/manuscript/pkg/document/time"
)

var (
	// ErrIndexOutOfBounds is returned when the given index is out of the
	// document's current bounds.
	ErrIndexOutOfBounds = errors.New("index out of bounds")

	// ErrNodeNotFound is returned when a position references a node this
	// replica does not know.
	ErrNodeNotFound = errors.New("node not found")
)

// Text is the replicated text body of a document. Concurrent edits from any
// number of replicas merge deterministically; applying the same multiset of
// edits in any order converges to byte-identical content.
type Text struct {
	split *Split
}

// NewText creates a new instance of Text.
func NewText() *Text {
	return &Text{
		split: NewSplit(),
	}
}

// String returns the visible content of this Text.
func (t *Text) String() string {
	return t.split.String()
}

// Len returns the visible length of this Text in bytes.
func (t *Text) Len() int {
	return t.split.Len()
}

// CreateRange returns a pair of stable positions for the given byte offsets.
func (t *Text) CreateRange(from, to int) (*NodePos, *NodePos, error) {
	return t.split.CreateRange(from, to)
}

// Edit replaces the given range with the given content at the given ticket.
// It returns the latest creation time per actor among the removed nodes.
func (t *Text) Edit(
	from, to *NodePos,
	latestCreatedAtMapByActor map[string]*time.Ticket,
	content string,
	editedAt *time.Ticket,
) (map[string]*time.Ticket, error) {
	_, maxCreatedAtMap, err := t.split.edit(from, to, latestCreatedAtMapByActor, content, editedAt)
	if err != nil {
		return nil, err
	}
	return maxCreatedAtMap, nil
}

// Nodes returns the internal nodes of this Text.
func (t *Text) Nodes() []*Node {
	return t.split.Nodes()
}

// RemovedNodesLen returns the number of tombstoned nodes.
func (t *Text) RemovedNodesLen() int {
	return t.split.removedNodesLen()
}

// PurgeRemovedNodesBefore physically purges tombstones removed at or before
// the given ticket. Content reconstruction for history replays the change
// log from scratch, so purging does not lose history.
func (t *Text) PurgeRemovedNodesBefore(ticket *time.Ticket) int {
	return t.split.purgeRemovedNodesBefore(ticket)
}
