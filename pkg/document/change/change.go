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

// Package change provides the unit of modification applied to documents.
package change

import (
	gotime "time"

	"github.com/manuscript-team/manuscript/pkg/document/crdt"
	"github.com/manuscript-team/manuscript/pkg/document/operations"
	"github.com/manuscript-team/manuscript/pkg/document/time"
)

// Change represents a unit of modification in the document executed at once.
// It carries the wall-clock time of its creation so that derived history can
// classify edit sessions.
type Change struct {
	id         ID
	message    string
	createdAt  gotime.Time
	operations []operations.Operation
}

// New creates a new instance of Change.
func New(id ID, message string, createdAt gotime.Time, ops []operations.Operation) *Change {
	return &Change{
		id:         id,
		message:    message,
		createdAt:  createdAt,
		operations: ops,
	}
}

// Execute applies this change to the given CRDT root.
func (c *Change) Execute(root *crdt.Root) error {
	for _, op := range c.operations {
		if err := op.Execute(root); err != nil {
			return err
		}
	}
	return nil
}

// ID returns the ID of this change.
func (c *Change) ID() ID {
	return c.id
}

// Message returns the message of this change.
func (c *Change) Message() string {
	return c.message
}

// CreatedAt returns the wall-clock creation time of this change.
func (c *Change) CreatedAt() gotime.Time {
	return c.createdAt
}

// Operations returns the operations of this change.
func (c *Change) Operations() []operations.Operation {
	return c.operations
}

// SetActor sets the given actor to this change, including its operations.
func (c *Change) SetActor(actor *time.ActorID) {
	c.id = c.id.SetActor(actor)
	for _, op := range c.operations {
		op.SetActor(actor)
	}
}
