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

package change

import (
	gotime "time"

	"github.com/manuscript-team/manuscript/pkg/document/operations"
	"github.com/manuscript-team/manuscript/pkg/document/time"
)

// Context is used to record the context of modification while editing a
// document. Each time an operation is added, a new time ticket is issued.
// Finally a Change is returned after the modification has been completed.
type Context struct {
	id         ID
	message    string
	operations []operations.Operation
	delimiter  uint32
}

// NewContext creates a new instance of Context.
func NewContext(id ID, message string) *Context {
	return &Context{
		id:      id,
		message: message,
	}
}

// ID returns the ID for the new change.
func (c *Context) ID() ID {
	return c.id
}

// ToChange creates a new change of this context.
func (c *Context) ToChange() *Change {
	return New(c.id, c.message, gotime.Now(), c.operations)
}

// HasOperations returns whether this context has operations.
func (c *Context) HasOperations() bool {
	return len(c.operations) > 0
}

// IssueTimeTicket creates a time ticket to be used to create a new operation.
func (c *Context) IssueTimeTicket() *time.Ticket {
	c.delimiter++
	return c.id.NewTimeTicket(c.delimiter)
}

// Push pushes a new operation into the context queue.
func (c *Context) Push(op operations.Operation) {
	c.operations = append(c.operations, op)
}
