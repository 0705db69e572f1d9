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
	"github.com/manuscript-team/manuscript/pkg/document/time"
)

// Register is a last-writer-wins register for atomic scalar fields such as
// the document title. Concurrent writes resolve by ticket order, so every
// replica converges on the same value.
type Register struct {
	value     string
	updatedAt *time.Ticket
}

// NewRegister creates a new instance of Register.
func NewRegister() *Register {
	return &Register{
		updatedAt: time.InitialTicket,
	}
}

// Value returns the current value of this register.
func (r *Register) Value() string {
	return r.value
}

// UpdatedAt returns the ticket of the winning write.
func (r *Register) UpdatedAt() *time.Ticket {
	return r.updatedAt
}

// Set applies the given write if its ticket is later than the winning one.
// It returns whether the value changed.
func (r *Register) Set(value string, updatedAt *time.Ticket) bool {
	if !updatedAt.After(r.updatedAt) {
		return false
	}

	r.value = value
	r.updatedAt = updatedAt
	return true
}
