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

// SetTitle is an operation that writes the document title. The title is a
// last-writer-wins register, so concurrent writes resolve by ticket order.
type SetTitle struct {
	title      string
	executedAt *time.Ticket
}

// NewSetTitle creates a new instance of SetTitle.
func NewSetTitle(title string, executedAt *time.Ticket) *SetTitle {
	return &SetTitle{
		title:      title,
		executedAt: executedAt,
	}
}

// Execute executes this operation on the given root.
func (o *SetTitle) Execute(root *crdt.Root) error {
	root.Title().Set(o.title, o.executedAt)
	return nil
}

// Title returns the title this operation writes.
func (o *SetTitle) Title() string {
	return o.title
}

// ExecutedAt returns the execution time of this operation.
func (o *SetTitle) ExecutedAt() *time.Ticket {
	return o.executedAt
}

// SetActor sets the given actor to this operation.
func (o *SetTitle) SetActor(actorID *time.ActorID) {
	o.executedAt = o.executedAt.SetActorID(actorID)
}
