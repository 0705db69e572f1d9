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

package operations

import (
	"github.com/manuscript-team/manuscript/pkg/document/crdt"
	"github.com/manuscript-team/manuscript/pkg/document/time"
)

// Edit is an operation representing an edit of the text body.
type Edit struct {
	// from represents the start point of the editing range.
	from *crdt.NodePos

	// to represents the end point of the editing range.
	to *crdt.NodePos

	// maxCreatedAtMapByActor is a map that stores the latest creation time
	// by actor for the nodes covered by the editing range at the replica
	// that issued the edit.
	maxCreatedAtMapByActor map[string]*time.Ticket

	// content is the text inserted by the edit. Empty for pure deletion.
	content string

	// executedAt is the time the operation was executed.
	executedAt *time.Ticket
}

// NewEdit creates a new instance of Edit.
func NewEdit(
	from, to *crdt.NodePos,
	maxCreatedAtMapByActor map[string]*time.Ticket,
	content string,
	executedAt *time.Ticket,
) *Edit {
	return &Edit{
		from:                   from,
		to:                     to,
		maxCreatedAtMapByActor: maxCreatedAtMapByActor,
		content:                content,
		executedAt:             executedAt,
	}
}

// Execute executes this operation on the given root.
func (e *Edit) Execute(root *crdt.Root) error {
	_, err := root.Body().Edit(e.from, e.to, e.maxCreatedAtMapByActor, e.content, e.executedAt)
	return err
}

// From returns the start point of the editing range.
func (e *Edit) From() *crdt.NodePos {
	return e.from
}

// To returns the end point of the editing range.
func (e *Edit) To() *crdt.NodePos {
	return e.to
}

// Content returns the content of this edit.
func (e *Edit) Content() string {
	return e.content
}

// MaxCreatedAtMapByActor returns the map that stores the latest creation time
// by actor for the nodes covered by the editing range.
func (e *Edit) MaxCreatedAtMapByActor() map[string]*time.Ticket {
	return e.maxCreatedAtMapByActor
}

// ExecutedAt returns the execution time of this operation.
func (e *Edit) ExecutedAt() *time.Ticket {
	return e.executedAt
}

// SetActor sets the given actor to this operation.
func (e *Edit) SetActor(actorID *time.ActorID) {
	e.executedAt = e.executedAt.SetActorID(actorID)
}
